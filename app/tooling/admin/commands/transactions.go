package commands

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transactions writes every transaction in the chain in block order. When an
// account is provided only the transactions it sent or received are written.
func Transactions(w io.Writer, state *chain.State, onlyAct string) error {
	var filter []byte
	if onlyAct != "" {
		addr, err := database.HexToAddress(onlyAct)
		if err != nil {
			return err
		}
		filter = addr.Bytes()
	}

	for _, block := range state.Blocks(0) {
		for _, tx := range block.Transactions {
			if filter != nil && !bytes.Equal(tx.SenderHash, filter) && !bytes.Equal(tx.RecipientHash, filter) {
				continue
			}

			fmt.Fprintf(w, "Block: %d  ID: %s  From: %s  To: %s  Amount: %d  Fee: %d  Nonce: %d\n",
				block.Height, tx.TxID, hexutil.Encode(tx.SenderHash), hexutil.Encode(tx.RecipientHash), tx.Amount, tx.Fee, tx.Nonce)
		}
	}

	return nil
}
