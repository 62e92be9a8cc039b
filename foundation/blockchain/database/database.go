// Package database defines the ledger's value types: accounts, transactions
// and blocks, along with their canonical encodings and validation rules. It
// also declares the storage contract used to persist accepted blocks.
package database

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Set of errors returned by storage implementations.
var (
	ErrChainEnd        = errors.New("end of chain")
	ErrBlockNotFound   = errors.New("block does not exist")
	ErrBlockOutOfOrder = errors.New("block is out of order")
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(height uint64) (BlockData, error)
	ForEach() Iterator
	Truncate(height uint64) error // Removes every block from height on.
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// BlockData represents what is written to storage and sent over the wire.
type BlockData struct {
	BlockID      hexutil.Bytes `json:"block_id"`
	Previous     hexutil.Bytes `json:"previous"`
	Height       uint64        `json:"height"`
	Miner        hexutil.Bytes `json:"miner"`
	Timestamp    uint64        `json:"timestamp"`
	Difficulty   string        `json:"difficulty"`
	Nonce        uint64        `json:"nonce"`
	Transactions []Tx          `json:"transactions"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	trans := block.Transactions
	if trans == nil {
		trans = []Tx{}
	}

	return BlockData{
		BlockID:      block.BlockID,
		Previous:     block.Previous,
		Height:       block.Height,
		Miner:        block.Miner,
		Timestamp:    block.Timestamp,
		Difficulty:   block.Difficulty.Dec(),
		Nonce:        block.Nonce,
		Transactions: trans,
	}
}

// ToBlock converts the storage form back into a block. No validation beyond
// decoding takes place, the chain re-verifies every block it is handed.
func ToBlock(blockData BlockData) (Block, error) {
	difficulty, err := uint256.FromDecimal(blockData.Difficulty)
	if err != nil {
		return Block{}, fmt.Errorf("block[%d]: difficulty %q: %w", blockData.Height, blockData.Difficulty, err)
	}

	block := Block{
		Previous:     blockData.Previous,
		Height:       blockData.Height,
		Miner:        blockData.Miner,
		Transactions: blockData.Transactions,
		Timestamp:    blockData.Timestamp,
		Difficulty:   *difficulty,
		BlockID:      blockData.BlockID,
		Nonce:        blockData.Nonce,
	}

	return block, nil
}
