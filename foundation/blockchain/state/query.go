package state

import (
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/genesis"
	"github.com/holiman/uint256"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// Status describes the chain a node is on.
type Status struct {
	Height          uint64
	LatestBlockID   []byte
	TotalDifficulty uint256.Int
	NextDifficulty  uint256.Int
	MempoolLength   int
}

// =============================================================================

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// MinerAddress returns the address receiving the rewards of mined blocks.
func (s *State) MinerAddress() database.Address {
	return s.minerAddress
}

// QueryAccount returns a copy of the specified account.
func (s *State) QueryAccount(addr database.Address) (database.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, exists := s.chain.Account(addr)
	if !exists {
		return database.Account{}, database.ErrSenderNotFound
	}

	return acct, nil
}

// QueryAccounts returns a copy of every account.
func (s *State) QueryAccounts() database.Accounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Accounts()
}

// QueryMempool returns a copy of the pending transactions.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByHeight returns the blocks between the heights, inclusive.
// QueryLatest can be used for either value.
func (s *State) QueryBlocksByHeight(from uint64, to uint64) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	length := uint64(s.chain.Len())
	if length == 0 {
		return nil
	}

	if from == QueryLatest {
		from = length - 1
	}
	if to == QueryLatest || to >= length {
		to = length - 1
	}
	if from > to {
		return nil
	}

	return s.chain.Blocks(from)[:to-from+1]
}

// QueryStatus returns the status of the chain.
func (s *State) QueryStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		Height:          uint64(s.chain.Len()),
		LatestBlockID:   s.chain.TipID(),
		TotalDifficulty: s.chain.TotalDifficulty(),
		NextDifficulty:  s.chain.NextDifficulty(),
		MempoolLength:   s.mempool.Count(),
	}
}
