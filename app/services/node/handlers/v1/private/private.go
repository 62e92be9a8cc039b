// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/zimcoin/business/web/errs"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/state"
	"github.com/ardanlabs/zimcoin/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	// Decode the JSON in the post call into a block.
	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	block, err := database.ToBlock(blockData)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain database.
	h.Log.Infow("propose block", "traceid", web.GetTraceID(ctx), "height", block.Height, "blk", block.Hash())
	if err := h.State.ProcessProposedBlock(block); err != nil {
		return errs.NewTrusted(fmt.Errorf("block not accepted: %w", err), http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBranch takes a competing branch received from a peer. The branch
// replaces the tail of the local chain when the result is strictly heavier.
func (h Handlers) ProposeBranch(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var blocksData []database.BlockData
	if err := web.Decode(r, &blocksData); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	branch := make([]database.Block, len(blocksData))
	for i, blockData := range blocksData {
		block, err := database.ToBlock(blockData)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		branch[i] = block
	}

	h.Log.Infow("propose branch", "traceid", web.GetTraceID(ctx), "blocks", len(branch))
	if err := h.State.ProcessProposedBranch(branch); err != nil {
		return errs.NewTrusted(fmt.Errorf("branch not accepted: %w", err), http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
		Height uint64 `json:"height"`
	}{
		Status: "accepted",
		Height: h.State.QueryStatus().Height,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := h.State.QueryStatus()

	resp := nodeStatus{
		Blocks:          status.Height,
		LatestBlockID:   status.LatestBlockID,
		TotalDifficulty: status.TotalDifficulty.Dec(),
		NextDifficulty:  status.NextDifficulty.Dec(),
		Uncommitted:     status.MempoolLength,
		Miner:           h.State.MinerAddress(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := heightParam(r, "from")
	if err != nil {
		return err
	}

	to, err := heightParam(r, "to")
	if err != nil {
		return err
	}

	if from > to {
		return errs.NewTrusted(fmt.Errorf("from %d is greater than to %d", from, to), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByHeight(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocksData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blocksData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blocksData, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in their signed form.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryMempool(), http.StatusOK)
}

// =============================================================================

// heightParam reads a block height from the path. The word latest stands for
// the tip of the chain.
func heightParam(r *http.Request, key string) (uint64, error) {
	param := web.Param(r, key)
	if param == "latest" || param == "" {
		return state.QueryLatest, nil
	}

	height, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid %s height %q: %w", key, param, err), http.StatusBadRequest)
	}

	return height, nil
}
