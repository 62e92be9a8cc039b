// This program performs offline administrative tasks against the blocks a
// node has stored. Every block is verified again while it is loaded.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/zimcoin/app/tooling/admin/commands"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/genesis"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/zimcoin/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		GenesisPath string `conf:"default:zblock/genesis.json"`
		Storage     string `conf:"default:bolt,help:disk|bolt"`
		DBPath      string `conf:"default:zblock/miner1/"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "zimcoin admin: verify | bals [account] | trans [account] | reset",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	var storage database.Storage
	switch cfg.Storage {
	case "disk":
		storage, err = disk.New(cfg.DBPath)
	case "bolt":
		storage, err = bolt.New(cfg.DBPath)
	default:
		err = fmt.Errorf("unknown storage kind %q", cfg.Storage)
	}
	if err != nil {
		return err
	}
	defer storage.Close()

	log.Infow("startup", "storage", cfg.Storage, "path", cfg.DBPath)

	return processCommands(cfg.Args, storage, gen)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, storage database.Storage, gen genesis.Genesis) error {

	// A reset must work even when the stored blocks no longer verify.
	if args.Num(0) == "reset" {
		return commands.Reset(os.Stdout, storage)
	}

	chain, err := commands.Load(storage, gen)
	if err != nil {
		return err
	}

	switch args.Num(0) {
	case "verify":
		return commands.Verify(os.Stdout, chain)

	case "bals":
		if err := commands.Balances(os.Stdout, chain, args.Num(1)); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if err := commands.Transactions(os.Stdout, chain, args.Num(1)); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	default:
		return fmt.Errorf("unknown command %q", args.Num(0))
	}

	return nil
}
