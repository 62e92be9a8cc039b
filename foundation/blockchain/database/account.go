package database

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Address represents an account on the blockchain. It is the SHA-1 hash of
// the DER encoded public key that owns the account.
type Address [signature.AddressLength]byte

// ToAddress converts raw bytes into an address. The bytes must be exactly
// 20 bytes long.
func ToAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return Address{}, fmt.Errorf("%w: got %d bytes", ErrInvalidHashLength, len(b))
	}

	copy(a[:], b)
	return a, nil
}

// HexToAddress converts a 0x prefixed hex string into an address.
func HexToAddress(hex string) (Address, error) {
	b, err := hexutil.Decode(hex)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", hex, err)
	}

	return ToAddress(b)
}

// PublicKeyToAddress derives the address owned by the private key.
func PublicKeyToAddress(privateKey *ecdsa.PrivateKey) (Address, error) {
	_, addr, err := signature.PublicKeyDER(privateKey)
	if err != nil {
		return Address{}, err
	}

	return Address(addr), nil
}

// Bytes returns a copy of the address as a slice.
func (a Address) Bytes() []byte {
	b := make([]byte, len(a))
	copy(b, a[:])
	return b
}

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// MarshalText allows an address to be used as a JSON map key.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the 0x prefixed hex form of an address.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := HexToAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr
	return nil
}

// =============================================================================

// Account represents the ledger state for an individual address.
type Account struct {
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// Accounts maps an address to its ledger state. An account appears the first
// time it is credited, either as a block miner or a transaction recipient,
// and is never removed.
type Accounts map[Address]Account

// Clone makes a copy of the accounts.
func (accts Accounts) Clone() Accounts {
	cpy := make(Accounts, len(accts))
	for addr, acct := range accts {
		cpy[addr] = acct
	}
	return cpy
}

// =============================================================================

// Delta holds the post block value of every account touched by a block.
type Delta map[Address]Account

// ApplyTo writes the delta into the accounts.
func (d Delta) ApplyTo(accts Accounts) {
	for addr, acct := range d {
		accts[addr] = acct
	}
}

// lookup reads an account through the delta, falling back to the previous
// accounts when this block has not touched it yet.
func (d Delta) lookup(previous Accounts, addr Address) (Account, bool) {
	if acct, exists := d[addr]; exists {
		return acct, true
	}

	acct, exists := previous[addr]
	return acct, exists
}
