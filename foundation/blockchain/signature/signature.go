// Package signature provides helper functions for handling the blockchain
// signature needs. Public keys travel as DER encoded SubjectPublicKeyInfo
// values on the secp256k1 curve and signatures are DER encoded ECDSA values
// produced over a SHA-256 prehash.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the number of bytes in an account address.
const AddressLength = sha1.Size

// HashLength is the number of bytes produced by Hash.
const HashLength = sha256.Size

// Set of errors returned while handling keys and signatures.
var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

var (
	oidPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// =============================================================================

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

type subjectPublicKeyInfo struct {
	Algorithm algorithmIdentifier
	PublicKey asn1.BitString
}

// =============================================================================

// Hash returns the SHA-256 digest of the concatenation of the parts.
func Hash(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// AddressOf returns the account address for the DER encoded public key.
func AddressOf(publicKeyDER []byte) [AddressLength]byte {
	return sha1.Sum(publicKeyDER)
}

// MarshalPublicKey converts the public key into its DER encoded
// SubjectPublicKeyInfo form with an uncompressed point.
func MarshalPublicKey(pk *ecdsa.PublicKey) ([]byte, error) {
	point := crypto.FromECDSAPub(pk)
	if point == nil {
		return nil, ErrInvalidPublicKey
	}

	spki := subjectPublicKeyInfo{
		Algorithm: algorithmIdentifier{
			Algorithm:  oidPublicKeyECDSA,
			Parameters: oidCurveSecp256k1,
		},
		PublicKey: asn1.BitString{
			Bytes:     point,
			BitLength: 8 * len(point),
		},
	}

	der, err := asn1.Marshal(spki)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return der, nil
}

// ParsePublicKey decodes a DER encoded SubjectPublicKeyInfo value and returns
// the secp256k1 public key it carries.
func ParsePublicKey(der []byte) (*secp256k1.PublicKey, error) {
	var spki subjectPublicKeyInfo
	rest, err := asn1.Unmarshal(der, &spki)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidPublicKey)
	}

	if !spki.Algorithm.Algorithm.Equal(oidPublicKeyECDSA) || !spki.Algorithm.Parameters.Equal(oidCurveSecp256k1) {
		return nil, fmt.Errorf("%w: not a secp256k1 key", ErrInvalidPublicKey)
	}

	pk, err := secp256k1.ParsePubKey(spki.PublicKey.RightAlign())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	return pk, nil
}

// PublicKeyDER returns the DER encoded public key for the private key along
// with the account address derived from it.
func PublicKeyDER(privateKey *ecdsa.PrivateKey) ([]byte, [AddressLength]byte, error) {
	der, err := MarshalPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, [AddressLength]byte{}, err
	}

	return der, AddressOf(der), nil
}

// Sign produces a DER encoded ECDSA signature of the 32 byte prehash using
// the specified private key. Signing is deterministic (RFC 6979).
func Sign(prehash []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if len(prehash) != HashLength {
		return nil, fmt.Errorf("prehash must be %d bytes, got %d", HashLength, len(prehash))
	}

	key := secp256k1.PrivKeyFromBytes(crypto.FromECDSA(privateKey))
	defer key.Zero()

	sig := dcrecdsa.Sign(key, prehash)

	// Check the signature against the public key before handing it out.
	if !sig.Verify(prehash, key.PubKey()) {
		return nil, ErrInvalidSignature
	}

	return sig.Serialize(), nil
}

// Verify checks the DER encoded signature over the prehash was produced by
// the owner of the DER encoded public key.
func Verify(prehash []byte, sigDER []byte, publicKeyDER []byte) error {
	pk, err := ParsePublicKey(publicKeyDER)
	if err != nil {
		return err
	}

	sig, err := dcrecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if !sig.Verify(prehash, pk) {
		return ErrInvalidSignature
	}

	return nil
}
