// Package nameservice reads a folder of private key files and creates a name
// service lookup for the accounts they own. The name of an account is the
// name of its key file.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyExtension is the file extension of the private key files.
const KeyExtension = ".ecdsa"

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[database.Address]string
}

// New constructs a name service with the accounts found under root. A root
// that does not exist produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.Address]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			if fileName == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != KeyExtension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		addr, err := database.PublicKeyToAddress(privateKey)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		ns.accounts[addr] = strings.TrimSuffix(filepath.Base(fileName), KeyExtension)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account. Unknown accounts are
// returned in their hex form.
func (ns *NameService) Lookup(addr database.Address) string {
	name, exists := ns.accounts[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Address returns the account owned by the named key file.
func (ns *NameService) Address(name string) (database.Address, bool) {
	for addr, n := range ns.accounts {
		if n == name {
			return addr, true
		}
	}
	return database.Address{}, false
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[database.Address]string {
	cpy := make(map[database.Address]string, len(ns.accounts))
	for addr, name := range ns.accounts {
		cpy[addr] = name
	}
	return cpy
}
