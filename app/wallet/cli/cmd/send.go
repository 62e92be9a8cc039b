package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
	fee    string
	nonce  uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send, the fee included.")
	sendCmd.Flags().StringVarP(&fee, "fee", "f", "0", "Part of the amount paid to the miner.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Nonce of the transaction, 0 uses the next nonce of the account.")
}

func sendRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	recipient, err := database.HexToAddress(to)
	if err != nil {
		log.Fatal(err)
	}

	value, err := database.ParseAmount(amount)
	if err != nil {
		log.Fatal(err)
	}

	tip, err := database.ParseFee(fee)
	if err != nil {
		log.Fatal(err)
	}

	if nonce == 0 {
		sender, err := database.PublicKeyToAddress(privateKey)
		if err != nil {
			log.Fatal(err)
		}

		acct, err := queryAccount(url, sender)
		if err != nil {
			log.Fatal(err)
		}
		nonce = acct.Nonce + 1
	}

	tx, err := database.CreateSignedTransaction(privateKey, recipient, value, tip, nonce)
	if err != nil {
		log.Fatal(err)
	}

	if err := submitTransaction(url, tx); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Submitted:", tx.TxID)
}
