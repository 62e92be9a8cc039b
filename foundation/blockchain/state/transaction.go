package state

import (
	"fmt"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// SubmitWalletTransaction accepts a transaction from a wallet for inclusion.
// The transaction is checked against the sender's current account. Its nonce
// may run ahead of the account when earlier transactions are still pending.
func (s *State) SubmitWalletTransaction(tx database.Tx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	n, err := s.mempool.Upsert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: SubmitWalletTransaction: tx[%s] mempool[%d]", tx.TxID, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

// =============================================================================

// validateTransaction takes the signed transaction and validates it against
// the current accounts.
func (s *State) validateTransaction(tx database.Tx) error {
	from, err := tx.Sender()
	if err != nil {
		return err
	}

	s.mu.RLock()
	acct, exists := s.chain.Account(from)
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", database.ErrSenderNotFound, from)
	}

	if tx.Nonce <= acct.Nonce {
		return fmt.Errorf("%w: got %d, account is at %d", database.ErrInvalidNonce, tx.Nonce, acct.Nonce)
	}

	// The nonce ordering was checked above, everything else is checked as
	// if this were the sender's next transaction.
	return tx.Verify(acct.Balance, tx.Nonce-1)
}
