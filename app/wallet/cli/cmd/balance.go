package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	addr, err := database.PublicKeyToAddress(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Account:", addr)

	acct, err := queryAccount(url, addr)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Balance: %d\nNonce:   %d\n", acct.Balance, acct.Nonce)
}
