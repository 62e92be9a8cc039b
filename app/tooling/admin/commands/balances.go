package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// Balances writes the current set of balances. When an account is provided
// only that account is written.
func Balances(w io.Writer, state *chain.State, onlyAct string) error {
	fmt.Fprintf(w, "LatestBlock: %#x\n\n", state.TipID())

	if onlyAct != "" {
		addr, err := database.HexToAddress(onlyAct)
		if err != nil {
			return err
		}

		acct, exists := state.Account(addr)
		if !exists {
			return fmt.Errorf("%w: %s", database.ErrSenderNotFound, addr)
		}

		fmt.Fprintf(w, "Account: %s  Balance: %d  Nonce: %d\n", addr, acct.Balance, acct.Nonce)
		return nil
	}

	accounts := state.Accounts()

	addrs := make([]database.Address, 0, len(accounts))
	for addr := range accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})

	for _, addr := range addrs {
		acct := accounts[addr]
		fmt.Fprintf(w, "Account: %s  Balance: %d  Nonce: %d\n", addr, acct.Balance, acct.Nonce)
	}

	return nil
}
