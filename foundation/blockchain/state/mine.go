package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/miner"
)

// Set of errors returned by a mining attempt.
var (
	ErrNoTransactions = errors.New("no transactions in mempool")
	ErrNoMiner        = errors.New("no miner configured")
	ErrNotFound       = errors.New("no nonce found")
	ErrStaleTip       = errors.New("chain tip changed while mining")
)

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. The nonce search happens without
// holding the ledger lock. The block found is verified and applied like any
// other block.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	if s.miner == nil {
		return database.Block{}, ErrNoMiner
	}

	s.evHandler("state: MineNewBlock: MINING: prepare block")

	block, err := s.prepareBlock()
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: height[%d] difficulty[%s] txs[%d]", block.Height, block.Difficulty.Dec(), len(block.Transactions))

	nonce, found := s.miner.Search(ctx, block.ToBytes(), block.CalculateTarget(), miner.RandomStart(), s.searchWindow)
	if !found {
		if ctx.Err() != nil {
			return database.Block{}, ctx.Err()
		}
		return database.Block{}, ErrNotFound
	}

	block = block.WithNonce(nonce)

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another block may have been accepted while searching.
	if !bytes.Equal(block.Previous, s.chain.TipID()) {
		return database.Block{}, ErrStaleTip
	}

	if err := s.applyBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// prepareBlock builds the next block for the current tip using the best
// transactions the accounts can pay for.
func (s *State) prepareBlock() (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trans []database.Tx
	if s.chain.Len() > 0 {
		if s.mempool.Count() == 0 && !s.mineEmptyBlocks {
			return database.Block{}, ErrNoTransactions
		}

		trans = payable(s.chain.Accounts(), s.mempool.PickBest(int(s.genesis.TransPerBlock)))
		if len(trans) == 0 && !s.mineEmptyBlocks {
			return database.Block{}, ErrNoTransactions
		}
	}

	timestamp := uint64(time.Now().UTC().Unix())
	if tip, err := s.chain.Tip(); err == nil && tip.Timestamp > timestamp {
		timestamp = tip.Timestamp
	}

	block := database.NewBlock(s.chain.TipID(), uint64(s.chain.Len()), s.minerAddress, trans, timestamp, s.chain.NextDifficulty())

	return block, nil
}

// payable keeps the transactions that would apply in order against the
// accounts. Credits to the miner are not counted so the result never relies
// on the block reward.
func payable(accounts database.Accounts, trans []database.Tx) []database.Tx {
	var keep []database.Tx

	for _, tx := range trans {
		from, err := tx.Sender()
		if err != nil {
			continue
		}

		to, err := tx.Recipient()
		if err != nil {
			continue
		}

		acct, exists := accounts[from]
		if !exists {
			continue
		}

		if err := tx.Verify(acct.Balance, acct.Nonce); err != nil {
			continue
		}

		acct.Balance -= tx.Amount
		acct.Nonce = tx.Nonce
		accounts[from] = acct

		recipient := accounts[to]
		recipient.Balance += tx.Amount - tx.Fee
		accounts[to] = recipient

		keep = append(keep, tx)
	}

	return keep
}

// =============================================================================

// applyBlock verifies the block against the chain, stores it and removes the
// transactions it made unusable from the mempool. The caller must hold the
// write lock.
func (s *State) applyBlock(block database.Block) error {
	if err := s.chain.VerifyAndApplyBlock(block); err != nil {
		return err
	}

	if err := s.storage.Write(database.NewBlockData(block)); err != nil {
		if undoErr := s.chain.UndoLastBlock(); undoErr != nil {
			return fmt.Errorf("write block: %w: undo: %v", err, undoErr)
		}
		return fmt.Errorf("write block: %w", err)
	}

	removed := s.mempool.DeleteStale(s.chain.Accounts())
	s.evHandler("state: applyBlock: height[%d] mempool removed[%d]", block.Height, removed)

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}
