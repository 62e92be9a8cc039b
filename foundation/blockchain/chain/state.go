// Package chain maintains the ledger: the ordered sequence of accepted blocks,
// the account state they produce and the difficulty accumulated by them.
package chain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/difficulty"
	"github.com/holiman/uint256"
)

// Set of errors returned when a block does not extend the chain.
var (
	ErrWrongHeight         = errors.New("wrong block height")
	ErrWrongPreviousID     = errors.New("wrong previous block id")
	ErrTimestampRegression = errors.New("block timestamp is before its parent")
	ErrEmptyChain          = errors.New("chain is empty")
)

// change records the value an account held before a block touched it.
type change struct {
	address database.Address
	account database.Account
	existed bool
}

// State is the ledger. It is not safe for concurrent use, callers serialize
// access to it.
type State struct {
	oracle   difficulty.Oracle
	blocks   []database.Block
	accounts database.Accounts
	total    uint256.Int

	// One entry per accepted block holding what is needed to undo it.
	journal [][]change
}

// New constructs an empty chain that validates difficulty with the oracle.
func New(oracle difficulty.Oracle) *State {
	return &State{
		oracle:   oracle,
		accounts: make(database.Accounts),
	}
}

// VerifyAndApplyBlock validates the block extends the current tip and applies
// it. On failure the state is left unmodified.
func (s *State) VerifyAndApplyBlock(block database.Block) error {
	if block.Height != uint64(len(s.blocks)) {
		return fmt.Errorf("%w: got %d, exp %d", ErrWrongHeight, block.Height, len(s.blocks))
	}

	previous := database.ZeroID
	var tip *database.Block
	if len(s.blocks) > 0 {
		tip = &s.blocks[len(s.blocks)-1]
		previous = tip.BlockID
	}

	if !bytes.Equal(block.Previous, previous) {
		return fmt.Errorf("%w: got %x, exp %x", ErrWrongPreviousID, []byte(block.Previous), previous)
	}

	if tip != nil && block.Timestamp < tip.Timestamp {
		return fmt.Errorf("%w: got %d, parent %d", ErrTimestampRegression, block.Timestamp, tip.Timestamp)
	}

	expected := s.oracle.Calculate(s.blocks)

	delta, err := block.VerifyAndGetDelta(expected, s.accounts)
	if err != nil {
		return fmt.Errorf("block[%d]: %w", block.Height, err)
	}

	changes := make([]change, 0, len(delta))
	for addr := range delta {
		acct, exists := s.accounts[addr]
		changes = append(changes, change{address: addr, account: acct, existed: exists})
	}

	delta.ApplyTo(s.accounts)
	s.blocks = append(s.blocks, block)
	s.total.Add(&s.total, &block.Difficulty)
	s.journal = append(s.journal, changes)

	return nil
}

// UndoLastBlock removes the tip and restores the accounts and total difficulty
// to their values before it was applied.
func (s *State) UndoLastBlock() error {
	if len(s.blocks) == 0 {
		return ErrEmptyChain
	}

	last := len(s.blocks) - 1

	for _, c := range s.journal[last] {
		if !c.existed {
			delete(s.accounts, c.address)
			continue
		}
		s.accounts[c.address] = c.account
	}

	s.total.Sub(&s.total, &s.blocks[last].Difficulty)

	s.blocks[last] = database.Block{}
	s.blocks = s.blocks[:last]
	s.journal[last] = nil
	s.journal = s.journal[:last]

	return nil
}

// Clone returns a deep copy of the state. Blocks are shared since they are
// never mutated once accepted.
func (s *State) Clone() *State {
	blocks := make([]database.Block, len(s.blocks))
	copy(blocks, s.blocks)

	journal := make([][]change, len(s.journal))
	copy(journal, s.journal)

	return &State{
		oracle:   s.oracle,
		blocks:   blocks,
		accounts: s.accounts.Clone(),
		total:    s.total,
		journal:  journal,
	}
}

// =============================================================================

// Len returns the number of accepted blocks, which is also the height the
// next block must carry.
func (s *State) Len() int {
	return len(s.blocks)
}

// Tip returns the last accepted block.
func (s *State) Tip() (database.Block, error) {
	if len(s.blocks) == 0 {
		return database.Block{}, ErrEmptyChain
	}

	return s.blocks[len(s.blocks)-1], nil
}

// TipID returns the id the next block must carry as its previous id.
func (s *State) TipID() []byte {
	if len(s.blocks) == 0 {
		return database.ZeroID
	}

	return s.blocks[len(s.blocks)-1].BlockID
}

// Block returns the block at the specified height.
func (s *State) Block(height uint64) (database.Block, error) {
	if height >= uint64(len(s.blocks)) {
		return database.Block{}, fmt.Errorf("%w: height %d, length %d", ErrWrongHeight, height, len(s.blocks))
	}

	return s.blocks[height], nil
}

// Blocks returns a copy of the accepted blocks from the specified height on.
func (s *State) Blocks(from uint64) []database.Block {
	if from >= uint64(len(s.blocks)) {
		return nil
	}

	blocks := make([]database.Block, len(s.blocks)-int(from))
	copy(blocks, s.blocks[from:])

	return blocks
}

// Accounts returns a copy of the account state.
func (s *State) Accounts() database.Accounts {
	return s.accounts.Clone()
}

// Account returns the state of the specified account.
func (s *State) Account(addr database.Address) (database.Account, bool) {
	acct, exists := s.accounts[addr]
	return acct, exists
}

// TotalDifficulty returns the sum of the difficulty of every accepted block.
func (s *State) TotalDifficulty() uint256.Int {
	return s.total
}

// NextDifficulty returns the difficulty the next block must carry.
func (s *State) NextDifficulty() uint256.Int {
	return s.oracle.Calculate(s.blocks)
}
