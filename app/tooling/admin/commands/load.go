// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/difficulty"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/genesis"
)

// Load verifies every stored block in order and returns the chain they
// build. Unlike a node it does not repair storage, the first bad block is
// reported.
func Load(storage database.Storage, gen genesis.Genesis) (*chain.State, error) {
	state := chain.New(difficulty.New(gen.Baseline()))

	iter := storage.ForEach()
	for {
		blockData, err := iter.Next()
		if iter.Done() {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading block[%d]: %w", state.Len(), err)
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		if err := state.VerifyAndApplyBlock(block); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// Verify prints a summary of the verified chain.
func Verify(w io.Writer, state *chain.State) error {
	total := state.TotalDifficulty()
	next := state.NextDifficulty()

	fmt.Fprintf(w, "Blocks:          %d\n", state.Len())
	fmt.Fprintf(w, "Tip:             %#x\n", state.TipID())
	fmt.Fprintf(w, "TotalDifficulty: %s\n", total.Dec())
	fmt.Fprintf(w, "NextDifficulty:  %s\n", next.Dec())

	return nil
}
