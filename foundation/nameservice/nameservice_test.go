package nameservice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NameService(t *testing.T) {
	t.Log("Given the need to name the accounts of a key folder.")
	{
		root := t.TempDir()

		pk, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to generate a key: %s", failed, err)
		}

		if err := crypto.SaveECDSA(filepath.Join(root, "miner1.ecdsa"), pk); err != nil {
			t.Fatalf("\t%s\tShould be able to save the key: %s", failed, err)
		}
		if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0600); err != nil {
			t.Fatalf("\t%s\tShould be able to write a file: %s", failed, err)
		}

		ns, err := nameservice.New(root)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the folder: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the folder.", success)

		addr, err := database.PublicKeyToAddress(pk)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to derive the address: %s", failed, err)
		}

		if name := ns.Lookup(addr); name != "miner1" {
			t.Fatalf("\t%s\tShould name the account miner1, got %q.", failed, name)
		}
		t.Logf("\t%s\tShould name the account after its key file.", success)

		if got, ok := ns.Address("miner1"); !ok || got != addr {
			t.Fatalf("\t%s\tShould find the account by name.", failed)
		}
		t.Logf("\t%s\tShould find the account by name.", success)

		var unknown database.Address
		if name := ns.Lookup(unknown); name != unknown.String() {
			t.Fatalf("\t%s\tShould return the hex form of an unknown account, got %q.", failed, name)
		}
		t.Logf("\t%s\tShould return the hex form of an unknown account.", success)

		if len(ns.Copy()) != 1 {
			t.Fatalf("\t%s\tShould hold only the key files.", failed)
		}
		t.Logf("\t%s\tShould hold only the key files.", success)
	}

	t.Log("Given a folder that does not exist.")
	{
		ns, err := nameservice.New(filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("\t%s\tShould not fail: %s", failed, err)
		}
		if len(ns.Copy()) != 0 {
			t.Fatalf("\t%s\tShould be empty.", failed)
		}
		t.Logf("\t%s\tShould produce an empty name service.", success)
	}
}
