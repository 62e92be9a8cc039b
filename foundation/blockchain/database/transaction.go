package database

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Tx is the transactional information between two parties. A Tx is an
// immutable value once it has been signed.
type Tx struct {
	SenderHash      hexutil.Bytes `json:"sender_hash"`       // SHA-1 of the sender's DER public key.
	RecipientHash   hexutil.Bytes `json:"recipient_hash"`    // Account receiving the amount minus the fee.
	SenderPublicKey hexutil.Bytes `json:"sender_public_key"` // DER encoded secp256k1 public key.
	Amount          uint64        `json:"amount"`            // Value debited from the sender.
	Fee             uint64        `json:"fee"`               // Part of the amount paid to the block miner.
	Nonce           uint64        `json:"nonce"`             // Must be exactly one more than the sender's last nonce.
	Signature       hexutil.Bytes `json:"signature"`         // DER encoded ECDSA signature over SignatureHash.
	TxID            hexutil.Bytes `json:"txid"`              // SHA-256 over every field above.
}

// CreateSignedTransaction constructs a transaction from the sender owning the
// private key, signs it and computes its id.
func CreateSignedTransaction(privateKey *ecdsa.PrivateKey, recipient Address, amount uint64, fee uint64, nonce uint64) (Tx, error) {
	publicKey, sender, err := signature.PublicKeyDER(privateKey)
	if err != nil {
		return Tx{}, err
	}

	tx := Tx{
		SenderHash:      sender[:],
		RecipientHash:   recipient.Bytes(),
		SenderPublicKey: publicKey,
		Amount:          amount,
		Fee:             fee,
		Nonce:           nonce,
	}

	sig, err := signature.Sign(tx.SignatureHash(), privateKey)
	if err != nil {
		return Tx{}, err
	}

	tx.Signature = sig
	tx.TxID = tx.CalculateTxID()

	return tx, nil
}

// SignatureHash returns the prehash the sender signs:
// SHA256(recipient ‖ LE64(amount) ‖ LE64(fee) ‖ LE64(nonce)).
func (tx Tx) SignatureHash() []byte {
	return signature.Hash(
		tx.RecipientHash,
		le64(tx.Amount),
		le64(tx.Fee),
		le64(tx.Nonce),
	)
}

// CalculateTxID returns the transaction id for the current field values.
func (tx Tx) CalculateTxID() []byte {
	return signature.Hash(
		tx.SenderHash,
		tx.RecipientHash,
		tx.SenderPublicKey,
		le64(tx.Amount),
		le64(tx.Fee),
		le64(tx.Nonce),
		tx.Signature,
	)
}

// Verify validates the transaction against the sender's current balance and
// last used nonce. Nothing is modified.
func (tx Tx) Verify(senderBalance uint64, senderPreviousNonce uint64) error {
	if len(tx.SenderHash) != signature.AddressLength {
		return fmt.Errorf("%w: sender hash is %d bytes", ErrInvalidHashLength, len(tx.SenderHash))
	}

	if len(tx.RecipientHash) != signature.AddressLength {
		return fmt.Errorf("%w: recipient hash is %d bytes", ErrInvalidHashLength, len(tx.RecipientHash))
	}

	sender := signature.AddressOf(tx.SenderPublicKey)
	if !bytes.Equal(tx.SenderHash, sender[:]) {
		return ErrSenderHashMismatch
	}

	if tx.Amount < 1 {
		return ErrInvalidAmount
	}

	if tx.Amount > senderBalance {
		return fmt.Errorf("%w: balance %d, amount %d", ErrInsufficientFunds, senderBalance, tx.Amount)
	}

	if tx.Fee > tx.Amount {
		return fmt.Errorf("%w: amount %d, fee %d", ErrFeeExceedsAmount, tx.Amount, tx.Fee)
	}

	if senderPreviousNonce == math.MaxUint64 || tx.Nonce != senderPreviousNonce+1 {
		return fmt.Errorf("%w: last %d, got %d", ErrInvalidNonce, senderPreviousNonce, tx.Nonce)
	}

	if !bytes.Equal(tx.TxID, tx.CalculateTxID()) {
		return ErrInvalidTxID
	}

	if err := signature.Verify(tx.SignatureHash(), tx.Signature, tx.SenderPublicKey); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return nil
}

// Sender returns the sender hash as an address.
func (tx Tx) Sender() (Address, error) {
	return ToAddress(tx.SenderHash)
}

// Recipient returns the recipient hash as an address.
func (tx Tx) Recipient() (Address, error) {
	return ToAddress(tx.RecipientHash)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%d", tx.SenderHash, tx.Nonce)
}

// =============================================================================

// ParseAmount converts an externally supplied quantity into an amount. The
// value must be a non-negative whole number that fits in 64 bits.
func ParseAmount(s string) (uint64, error) {
	return parseQuantity(s, ErrInvalidAmount, ErrNonWholeAmount)
}

// ParseFee converts an externally supplied quantity into a fee. The value must
// be a non-negative whole number that fits in 64 bits.
func ParseFee(s string) (uint64, error) {
	return parseQuantity(s, ErrInvalidFee, ErrNonWholeFee)
}

func parseQuantity(s string, errInvalid error, errNonWhole error) (uint64, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", errInvalid, s)
	}

	if r.Sign() < 0 {
		return 0, fmt.Errorf("%w: %q is negative", errInvalid, s)
	}

	if !r.IsInt() {
		return 0, fmt.Errorf("%w: %q", errNonWhole, s)
	}

	if !r.Num().IsUint64() {
		return 0, fmt.Errorf("%w: %q is too large", errInvalid, s)
	}

	return r.Num().Uint64(), nil
}

// le64 encodes the value as 8 little endian bytes.
func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
