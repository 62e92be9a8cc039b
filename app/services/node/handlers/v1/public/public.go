// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ardanlabs/zimcoin/business/web/errs"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/state"
	"github.com/ardanlabs/zimcoin/foundation/events"
	"github.com/ardanlabs/zimcoin/foundation/nameservice"
	"github.com/ardanlabs/zimcoin/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("websocket", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds new user transactions to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx, err := st.toTx()
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", web.GetTraceID(ctx), "tx", tx)
	if err := h.State.SubmitWalletTransaction(tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
		TxID   string `json:"txid"`
	}{
		Status: "transaction added to mempool",
		TxID:   tx.TxID.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	filter, err := h.accountParam(r)
	if err != nil {
		return err
	}

	trans := []tx{}
	for _, dbTx := range h.State.QueryMempool() {
		if filter != nil && !txInvolves(*filter, dbTx) {
			continue
		}
		trans = append(trans, toTx(h.NS, dbTx))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all users or for the account
// named in the path.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	filter, err := h.accountParam(r)
	if err != nil {
		return err
	}

	var dbAccounts database.Accounts
	switch filter {
	case nil:
		dbAccounts = h.State.QueryAccounts()

	default:
		dbAccount, err := h.State.QueryAccount(*filter)
		if err != nil {
			if errors.Is(err, database.ErrSenderNotFound) {
				return errs.NewTrusted(err, http.StatusNotFound)
			}
			return err
		}
		dbAccounts = database.Accounts{*filter: dbAccount}
	}

	acts := make([]account, 0, len(dbAccounts))
	for addr, dbAccount := range dbAccounts {
		acts = append(acts, account{
			Account: addr,
			Name:    h.NS.Lookup(addr),
			Balance: dbAccount.Balance,
			Nonce:   dbAccount.Nonce,
		})
	}

	status := h.State.QueryStatus()

	ai := actInfo{
		LatestBlock: status.LatestBlockID,
		Uncommitted: status.MempoolLength,
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByAccount returns all the blocks and their details. When an account
// is named in the path only the blocks it took part in are returned.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	filter, err := h.accountParam(r)
	if err != nil {
		return err
	}

	dbBlocks := h.State.QueryBlocksByHeight(0, state.QueryLatest)

	blocks := []block{}
	for _, dbBlock := range dbBlocks {
		if filter != nil && !involves(*filter, dbBlock) {
			continue
		}
		blocks = append(blocks, toBlock(h.NS, dbBlock))
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// =============================================================================

// accountParam returns the account named in the path, if any. The account
// can be given in hex or by its name in the name service.
func (h Handlers) accountParam(r *http.Request) (*database.Address, error) {
	param := web.Param(r, "account")
	if param == "" {
		return nil, nil
	}

	if !strings.HasPrefix(param, "0x") {
		if addr, exists := h.NS.Address(param); exists {
			return &addr, nil
		}
	}

	addr, err := database.HexToAddress(param)
	if err != nil {
		return nil, errs.NewTrusted(err, http.StatusBadRequest)
	}

	return &addr, nil
}
