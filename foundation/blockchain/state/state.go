// Package state is the core API for the blockchain node. It owns the ledger
// and serializes every change made to it: mined blocks, blocks and branches
// received from other nodes and wallet transactions.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/difficulty"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/genesis"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/mempool"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/mempool/selector"
)

// DefaultSearchWindow is the number of nonces tried per mining attempt when
// the configuration does not specify one.
const DefaultSearchWindow = 1 << 32

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// Miner interface represents the behavior required to search for a nonce.
// Implementations own no ledger state and must honor the context deadline.
type Miner interface {
	Search(ctx context.Context, preimage []byte, target database.Target, start uint64, window uint64) (uint64, bool)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress    database.Address
	Genesis         genesis.Genesis
	Storage         database.Storage
	Miner           Miner
	SelectStrategy  string
	SearchWindow    uint64
	MineEmptyBlocks bool
	EvHandler       EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.RWMutex

	minerAddress    database.Address
	evHandler       EventHandler
	genesis         genesis.Genesis
	storage         database.Storage
	miner           Miner
	searchWindow    uint64
	mineEmptyBlocks bool

	mempool *mempool.Mempool
	chain   *chain.State

	Worker Worker
}

// New constructs a new blockchain for data management. Every block found in
// storage is verified again before it becomes part of the chain.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("state: storage is required")
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFee
	}

	// Construct a mempool with the specified select strategy.
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	window := cfg.SearchWindow
	if window == 0 {
		window = DefaultSearchWindow
	}

	state := State{
		minerAddress:    cfg.MinerAddress,
		evHandler:       ev,
		genesis:         cfg.Genesis,
		storage:         cfg.Storage,
		miner:           cfg.Miner,
		searchWindow:    window,
		mineEmptyBlocks: cfg.MineEmptyBlocks,

		mempool: mempool,
		chain:   chain.New(difficulty.New(cfg.Genesis.Baseline())),
	}

	if err := state.replay(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database file is properly closed.
	defer func() {
		s.storage.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// replay loads the blocks found in storage into the chain. A block that does
// not decode or verify ends the replay and is removed from storage along with
// everything after it.
func (s *State) replay() error {
	s.evHandler("state: replay: started")

	iter := s.storage.ForEach()
	for {
		blockData, err := iter.Next()
		if iter.Done() {
			break
		}

		if err == nil {
			var block database.Block
			if block, err = database.ToBlock(blockData); err == nil {
				err = s.chain.VerifyAndApplyBlock(block)
			}
		}

		if err != nil {
			height := uint64(s.chain.Len())
			s.evHandler("state: replay: block[%d]: ERROR: %s: truncating storage", height, err)

			if err := s.storage.Truncate(height); err != nil {
				return fmt.Errorf("state: replay: truncate: %w", err)
			}
			break
		}
	}

	s.evHandler("state: replay: completed: blocks[%d]", s.chain.Len())

	return nil
}
