package public

import (
	"encoding/json"

	"github.com/ardanlabs/zimcoin/business/sys/validate"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// submitTx is the signed transaction a wallet posts. The amount and fee are
// taken as numbers and checked before the transaction is built.
type submitTx struct {
	SenderHash      hexutil.Bytes `json:"sender_hash" validate:"required"`
	RecipientHash   hexutil.Bytes `json:"recipient_hash" validate:"required"`
	SenderPublicKey hexutil.Bytes `json:"sender_public_key" validate:"required"`
	Amount          json.Number   `json:"amount" validate:"required"`
	Fee             json.Number   `json:"fee"`
	Nonce           uint64        `json:"nonce" validate:"required"`
	Signature       hexutil.Bytes `json:"signature" validate:"required"`
	TxID            hexutil.Bytes `json:"txid" validate:"required"`
}

// Validate checks the model for the required fields.
func (st submitTx) Validate() error {
	return validate.Check(st)
}

func (st submitTx) toTx() (database.Tx, error) {
	amount, err := database.ParseAmount(st.Amount.String())
	if err != nil {
		return database.Tx{}, err
	}

	var fee uint64
	if st.Fee != "" {
		if fee, err = database.ParseFee(st.Fee.String()); err != nil {
			return database.Tx{}, err
		}
	}

	tx := database.Tx{
		SenderHash:      st.SenderHash,
		RecipientHash:   st.RecipientHash,
		SenderPublicKey: st.SenderPublicKey,
		Amount:          amount,
		Fee:             fee,
		Nonce:           st.Nonce,
		Signature:       st.Signature,
		TxID:            st.TxID,
	}

	return tx, nil
}

// =============================================================================

type tx struct {
	TxID     hexutil.Bytes `json:"txid"`
	From     string        `json:"from"`
	FromName string        `json:"from_name"`
	To       string        `json:"to"`
	ToName   string        `json:"to_name"`
	Amount   uint64        `json:"amount"`
	Fee      uint64        `json:"fee"`
	Nonce    uint64        `json:"nonce"`
}

func toTx(ns *nameservice.NameService, dbTx database.Tx) tx {
	t := tx{
		TxID:   dbTx.TxID,
		From:   hexutil.Encode(dbTx.SenderHash),
		To:     hexutil.Encode(dbTx.RecipientHash),
		Amount: dbTx.Amount,
		Fee:    dbTx.Fee,
		Nonce:  dbTx.Nonce,
	}

	if from, err := dbTx.Sender(); err == nil {
		t.FromName = ns.Lookup(from)
	}
	if to, err := dbTx.Recipient(); err == nil {
		t.ToName = ns.Lookup(to)
	}

	return t
}

type block struct {
	BlockID      hexutil.Bytes `json:"block_id"`
	Previous     hexutil.Bytes `json:"previous"`
	Height       uint64        `json:"height"`
	Miner        string        `json:"miner"`
	MinerName    string        `json:"miner_name"`
	Timestamp    uint64        `json:"timestamp"`
	Difficulty   string        `json:"difficulty"`
	Nonce        uint64        `json:"nonce"`
	Transactions []tx          `json:"transactions"`
}

func toBlock(ns *nameservice.NameService, dbBlock database.Block) block {
	trans := make([]tx, len(dbBlock.Transactions))
	for i, dbTx := range dbBlock.Transactions {
		trans[i] = toTx(ns, dbTx)
	}

	b := block{
		BlockID:      dbBlock.BlockID,
		Previous:     dbBlock.Previous,
		Height:       dbBlock.Height,
		Miner:        hexutil.Encode(dbBlock.Miner),
		Timestamp:    dbBlock.Timestamp,
		Difficulty:   dbBlock.Difficulty.Dec(),
		Nonce:        dbBlock.Nonce,
		Transactions: trans,
	}

	if miner, err := database.ToAddress(dbBlock.Miner); err == nil {
		b.MinerName = ns.Lookup(miner)
	}

	return b
}

type account struct {
	Account database.Address `json:"account"`
	Name    string           `json:"name"`
	Balance uint64           `json:"balance"`
	Nonce   uint64           `json:"nonce"`
}

type actInfo struct {
	LatestBlock hexutil.Bytes `json:"latest_block"`
	Uncommitted int           `json:"uncommitted"`
	Accounts    []account     `json:"accounts"`
}

// involves reports whether the account sent, received or mined in the block.
func involves(addr database.Address, b database.Block) bool {
	if miner, err := database.ToAddress(b.Miner); err == nil && miner == addr {
		return true
	}

	for _, dbTx := range b.Transactions {
		if txInvolves(addr, dbTx) {
			return true
		}
	}

	return false
}

func txInvolves(addr database.Address, dbTx database.Tx) bool {
	if from, err := dbTx.Sender(); err == nil && from == addr {
		return true
	}
	if to, err := dbTx.Recipient(); err == nil && to == addr {
		return true
	}
	return false
}
