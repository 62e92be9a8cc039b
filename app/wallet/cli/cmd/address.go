package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the account address for the specific wallet",
	Run:   addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	addr, err := database.PublicKeyToAddress(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(addr)
}
