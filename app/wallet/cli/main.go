package main

import "github.com/ardanlabs/zimcoin/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
