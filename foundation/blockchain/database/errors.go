package database

import "errors"

// Set of errors returned while validating a transaction. They are checked in
// the order declared and the first failure wins.
var (
	ErrInvalidHashLength  = errors.New("invalid hash length")
	ErrSenderHashMismatch = errors.New("sender hash does not match public key")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNonWholeAmount     = errors.New("amount must be a whole number")
	ErrInvalidFee         = errors.New("invalid fee")
	ErrFeeExceedsAmount   = errors.New("fee exceeds amount")
	ErrNonWholeFee        = errors.New("fee must be a whole number")
	ErrInvalidNonce       = errors.New("invalid nonce")
	ErrInvalidTxID        = errors.New("invalid transaction id")
	ErrInvalidSignature   = errors.New("invalid signature")
)

// Set of errors returned while validating a block.
var (
	ErrWrongDifficulty     = errors.New("wrong difficulty")
	ErrInvalidBlockID      = errors.New("invalid block id")
	ErrTooManyTransactions = errors.New("too many transactions")
	ErrInvalidMinerAddress = errors.New("invalid miner address")
	ErrInvalidProofOfWork  = errors.New("invalid proof of work")
	ErrSenderNotFound      = errors.New("sender not found")
)
