package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/state"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				if w.runMiningOperation() {
					w.SignalStartMining()
				}
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the best transactions in the mempool into a new
// block on top of the current tip. It reports whether another operation
// should follow right away.
func (w *Worker) runMiningOperation() (again bool) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// If mining is signalled to be cancelled by a proposed block or branch,
	// this G can't terminate until it is told it can.
	var wait chan struct{}
	defer func() {
		if wait != nil {
			w.evHandler("worker: runMiningOperation: MINING: termination signal: waiting")
			<-wait
			w.evHandler("worker: runMiningOperation: MINING: termination signal: received")
		}
	}()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled and can't run past the
	// deadline.
	ctx, cancel := context.WithTimeout(context.Background(), w.deadline)
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case wait = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.MineNewBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		if err != nil {
			switch {
			case errors.Is(err, state.ErrNoTransactions):
				w.evHandler("worker: runMiningOperation: MINING: WARNING: no transactions in mempool")

			case errors.Is(err, state.ErrNoMiner):
				w.evHandler("worker: runMiningOperation: MINING: WARNING: no miner configured")

			// The block is rebuilt on the current tip with the current
			// mempool, the deadline or a new tip made this attempt stale.
			case errors.Is(err, state.ErrNotFound), errors.Is(err, state.ErrStaleTip), ctx.Err() != nil:
				w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete: %s", err)
				again = true

			default:
				w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			}
			return
		}

		w.evHandler("worker: runMiningOperation: MINING: SOLVED: height[%d] blk[%s]", block.Height, block.Hash())
		again = true
	}()

	// Wait for both G's to terminate.
	wg.Wait()

	return again
}
