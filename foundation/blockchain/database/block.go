package database

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Consensus constants for every block.
const (
	MaxTransactions        = 25
	BlockReward     uint64 = 10_000
)

// ZeroID is the previous block id carried by the genesis block.
var ZeroID = make([]byte, signature.HashLength)

// =============================================================================

// Block represents a group of transactions batched together. A Block is an
// immutable value once it has been mined and is shared by reference after
// being accepted into a chain.
type Block struct {
	Previous     hexutil.Bytes // Id of the parent block, 32 zero bytes for genesis.
	Height       uint64        // Number of blocks before this one.
	Miner        hexutil.Bytes // Address receiving the reward and fees.
	Transactions []Tx          // Applied strictly in order.
	Timestamp    uint64        // Unix seconds.
	Difficulty   uint256.Int   // Divisor of the proof of work target, fits in 128 bits.
	BlockID      hexutil.Bytes // SHA-256 of ToBytes and the nonce.
	Nonce        uint64        // Value found by the proof of work search.
}

// NewBlock constructs a block that still needs a nonce and block id.
func NewBlock(previous []byte, height uint64, miner Address, trans []Tx, timestamp uint64, difficulty uint256.Int) Block {
	prev := make([]byte, len(previous))
	copy(prev, previous)

	txs := make([]Tx, len(trans))
	copy(txs, trans)

	return Block{
		Previous:     prev,
		Height:       height,
		Miner:        miner.Bytes(),
		Transactions: txs,
		Timestamp:    timestamp,
		Difficulty:   difficulty,
	}
}

// WithNonce returns a copy of the block carrying the nonce and the block id
// that nonce produces.
func (b Block) WithNonce(nonce uint64) Block {
	b.Nonce = nonce
	b.BlockID = b.CalculateBlockID()
	return b
}

// ToBytes returns the canonical serialization of the block without the nonce:
// previous ‖ miner ‖ txid... ‖ LE64(timestamp) ‖ LE128(difficulty).
func (b Block) ToBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(b.Previous) + len(b.Miner) + 32*len(b.Transactions) + 8 + 16)

	buf.Write(b.Previous)
	buf.Write(b.Miner)
	for _, tx := range b.Transactions {
		buf.Write(tx.TxID)
	}
	buf.Write(le64(b.Timestamp))
	buf.Write(le128(&b.Difficulty))

	return buf.Bytes()
}

// CalculateBlockID returns SHA256(ToBytes ‖ LE64(nonce)).
func (b Block) CalculateBlockID() []byte {
	return signature.Hash(b.ToBytes(), le64(b.Nonce))
}

// CalculateTarget returns floor(2^256 / difficulty).
func (b Block) CalculateTarget() Target {
	return NewTarget(&b.Difficulty)
}

// VerifyProofOfWork recomputes the block id, checks it matches the stored
// value and that it falls below the target.
func (b Block) VerifyProofOfWork() error {
	id := b.CalculateBlockID()
	if !bytes.Equal(id, b.BlockID) {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidBlockID, b.BlockID, hexutil.Bytes(id))
	}

	if !b.CalculateTarget().Allows(id) {
		return fmt.Errorf("%w: %s", ErrInvalidProofOfWork, b.BlockID)
	}

	return nil
}

// VerifyAndGetChanges validates the block against the expected difficulty and
// returns the accounts produced by applying it to a copy of the previous
// accounts. The previous accounts are never modified.
func (b Block) VerifyAndGetChanges(expectedDifficulty uint256.Int, previous Accounts) (Accounts, error) {
	delta, err := b.VerifyAndGetDelta(expectedDifficulty, previous)
	if err != nil {
		return nil, err
	}

	accounts := previous.Clone()
	delta.ApplyTo(accounts)

	return accounts, nil
}

// VerifyAndGetDelta performs the same validation as VerifyAndGetChanges but
// only returns the accounts this block touched, with their post block values.
func (b Block) VerifyAndGetDelta(expectedDifficulty uint256.Int, previous Accounts) (Delta, error) {
	if !b.Difficulty.Eq(&expectedDifficulty) {
		return nil, fmt.Errorf("%w: got %s, exp %s", ErrWrongDifficulty, b.Difficulty.Dec(), expectedDifficulty.Dec())
	}

	if !bytes.Equal(b.CalculateBlockID(), b.BlockID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBlockID, b.BlockID)
	}

	if len(b.Transactions) > MaxTransactions {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyTransactions, len(b.Transactions), MaxTransactions)
	}

	miner, err := ToAddress(b.Miner)
	if err != nil {
		return nil, fmt.Errorf("%w: miner is %d bytes", ErrInvalidMinerAddress, len(b.Miner))
	}

	if err := b.VerifyProofOfWork(); err != nil {
		return nil, err
	}

	delta := make(Delta)

	// The miner account comes into existence here if this is the first
	// block it has mined.
	minerAcct, _ := delta.lookup(previous, miner)
	minerAcct.Balance += BlockReward
	delta[miner] = minerAcct

	for i, tx := range b.Transactions {
		from, err := tx.Sender()
		if err != nil {
			return nil, fmt.Errorf("tx[%d]: %w", i, err)
		}

		// A sender must already have been credited on this chain.
		fromAcct, exists := delta.lookup(previous, from)
		if !exists {
			return nil, fmt.Errorf("tx[%d]: %w: %s", i, ErrSenderNotFound, from)
		}

		if err := tx.Verify(fromAcct.Balance, fromAcct.Nonce); err != nil {
			return nil, fmt.Errorf("tx[%d]: %w", i, err)
		}

		to, err := tx.Recipient()
		if err != nil {
			return nil, fmt.Errorf("tx[%d]: %w", i, err)
		}

		fromAcct.Balance -= tx.Amount
		fromAcct.Nonce = tx.Nonce
		delta[from] = fromAcct

		// Read back after every write so a sender paying itself or the
		// miner sees its own updates.
		toAcct, _ := delta.lookup(previous, to)
		toAcct.Balance += tx.Amount - tx.Fee
		delta[to] = toAcct

		minerAcct, _ := delta.lookup(previous, miner)
		minerAcct.Balance += tx.Fee
		delta[miner] = minerAcct
	}

	return delta, nil
}

// Hash returns the block id as a hex string.
func (b Block) Hash() string {
	return b.BlockID.String()
}

// =============================================================================

// le128 encodes the low 128 bits of the value as 16 little endian bytes.
func le128(v *uint256.Int) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], v[0])
	binary.LittleEndian.PutUint64(b[8:], v[1])
	return b
}
