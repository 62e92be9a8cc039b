package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// Reset removes every stored block so the node starts again from genesis.
func Reset(w io.Writer, storage database.Storage) error {
	if err := storage.Reset(); err != nil {
		return fmt.Errorf("resetting storage: %w", err)
	}

	fmt.Fprintln(w, "storage reset")

	return nil
}
