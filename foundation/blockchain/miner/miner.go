// Package miner performs the proof of work nonce search. It owns no ledger
// state: it is handed the block pre-image and target and reports a nonce.
package miner

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/signature"
)

// progressInterval is the number of attempts between progress events.
const progressInterval = 1_000_000

// Miner searches for nonces using a fixed number of goroutines.
type Miner struct {
	threads   int
	evHandler func(v string, args ...any)
}

// New constructs a miner. A threads value of 0 uses every CPU.
func New(threads int, evHandler func(v string, args ...any)) *Miner {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Miner{
		threads:   threads,
		evHandler: ev,
	}
}

// Search looks for a nonce in [start, start+window) so that
// SHA256(preimage ‖ LE64(nonce)) falls below the target. It returns false if
// the window is exhausted or the context is done before a nonce is found. A
// nonce found after the context is done is never returned.
func (m *Miner) Search(ctx context.Context, preimage []byte, target database.Target, start uint64, window uint64) (uint64, bool) {
	m.evHandler("miner: Search: started: threads[%d] start[%d] window[%d] target[%s]", m.threads, start, window, target)

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		found    atomic.Bool
		nonce    atomic.Uint64
		attempts atomic.Uint64
		wg       sync.WaitGroup
	)

	wg.Add(m.threads)
	for thread := range m.threads {
		go func() {
			defer wg.Done()

			buf := make([]byte, len(preimage)+8)
			copy(buf, preimage)

			for i := uint64(thread); i < window; i += uint64(m.threads) {
				if searchCtx.Err() != nil {
					return
				}

				candidate := start + i
				binary.LittleEndian.PutUint64(buf[len(preimage):], candidate)

				if target.Allows(signature.Hash(buf)) {
					if found.CompareAndSwap(false, true) {
						nonce.Store(candidate)
					}
					cancel()
					return
				}

				if n := attempts.Add(1); n%progressInterval == 0 {
					m.evHandler("miner: Search: attempts[%d]", n)
				}
			}
		}()
	}

	wg.Wait()

	// The caller's deadline wins over a solution found at the same time.
	if ctx.Err() != nil {
		m.evHandler("miner: Search: cancelled: attempts[%d]", attempts.Load())
		return 0, false
	}

	if !found.Load() {
		m.evHandler("miner: Search: window exhausted: attempts[%d]", attempts.Load())
		return 0, false
	}

	m.evHandler("miner: Search: found: nonce[%d] attempts[%d]", nonce.Load(), attempts.Load())
	return nonce.Load(), true
}

// RandomStart returns a random nonce to start a search from so that miners
// working on the same block do not repeat each other's work.
func RandomStart() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b[:])
}
