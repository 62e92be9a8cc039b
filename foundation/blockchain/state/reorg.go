package state

import (
	"fmt"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// ProcessProposedBranch takes a competing branch received from a peer. The
// branch replaces the tail of the current chain only if the resulting chain
// is strictly heavier. Transactions from the replaced blocks that are still
// usable go back into the mempool.
func (s *State) ProcessProposedBranch(branch []database.Block) error {
	s.evHandler("state: ProcessProposedBranch: started: blocks[%d]", len(branch))
	defer s.evHandler("state: ProcessProposedBranch: completed")

	if err := s.reorganize(branch); err != nil {
		return err
	}

	done := s.signalCancelMining()
	defer func() {
		s.evHandler("state: ProcessProposedBranch: signal runMiningOperation to terminate")
		done()
	}()

	return nil
}

// reorganize swaps in the chain produced by the branch. Mining is not able to
// commit a block while this runs.
func (s *State) reorganize(branch []database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The candidate is built off to the side. The current chain is not
	// touched on failure.
	candidate, err := chain.VerifyReorg(s.chain, branch)
	if err != nil {
		return err
	}

	height := branch[0].Height
	orphaned := s.chain.Blocks(height)

	s.evHandler("state: reorganize: height[%d] replaced[%d] new[%d]", height, len(orphaned), len(branch))

	if err := s.rewriteStorage(height, branch); err != nil {
		s.evHandler("state: reorganize: storage: ERROR: %s: restoring", err)

		if restoreErr := s.rewriteStorage(height, orphaned); restoreErr != nil {
			return fmt.Errorf("reorganize: %w: restore: %v", err, restoreErr)
		}
		return fmt.Errorf("reorganize: %w", err)
	}

	s.chain = candidate

	// Give the transactions of the replaced blocks another chance.
	for _, block := range orphaned {
		for _, tx := range block.Transactions {
			if _, err := s.mempool.Upsert(tx); err != nil {
				s.evHandler("state: reorganize: mempool: tx[%s]: WARNING: %s", tx.TxID, err)
			}
		}
	}
	removed := s.mempool.DeleteStale(s.chain.Accounts())
	s.evHandler("state: reorganize: mempool removed[%d]", removed)

	for _, block := range branch {
		s.blockEvent(block)
	}

	return nil
}

// rewriteStorage replaces the stored blocks from the height on.
func (s *State) rewriteStorage(height uint64, blocks []database.Block) error {
	if err := s.storage.Truncate(height); err != nil {
		return err
	}

	for _, block := range blocks {
		if err := s.storage.Write(database.NewBlockData(block)); err != nil {
			return err
		}
	}

	return nil
}
