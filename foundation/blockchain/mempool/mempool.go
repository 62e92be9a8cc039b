// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of transactions organized by sender:nonce.
type Mempool struct {
	pool     map[string]database.Tx
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFee)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction from the mempool. A transaction with
// the same sender and nonce is replaced.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key, err := mapKey(tx)
	if err != nil {
		return 0, err
	}

	mp.pool[key] = tx

	return len(mp.pool), nil
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key, err := mapKey(tx)
	if err != nil {
		return err
	}

	delete(mp.pool, key)

	return nil
}

// DeleteStale removes every transaction the accounts make unusable, that is
// any transaction from a sender whose nonce has moved past it.
func (mp *Mempool) DeleteStale(accounts database.Accounts) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for key, tx := range mp.pool {
		from, err := tx.Sender()
		if err != nil {
			delete(mp.pool, key)
			removed++
			continue
		}

		if acct, exists := accounts[from]; exists && tx.Nonce <= acct.Nonce {
			delete(mp.pool, key)
			removed++
		}
	}

	return removed
}

// Copy returns a list of the current transactions in the pool.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		cpy = append(cpy, tx)
	}
	return cpy
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. Pass -1 for all of them.
func (mp *Mempool) PickBest(howMany int) []database.Tx {

	// Group the transactions by sender.
	m := make(map[database.Address][]database.Tx)
	mp.mu.RLock()
	{
		if howMany == -1 {
			howMany = len(mp.pool)
		}

		for _, tx := range mp.pool {
			from, err := tx.Sender()
			if err != nil {
				continue
			}
			m[from] = append(m[from], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}

// =============================================================================

// mapKey is used to generate the map key.
func mapKey(tx database.Tx) (string, error) {
	from, err := tx.Sender()
	if err != nil {
		return "", fmt.Errorf("mempool: %w", err)
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce), nil
}
