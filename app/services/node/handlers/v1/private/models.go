package private

import (
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type nodeStatus struct {
	Blocks          uint64           `json:"blocks"`
	LatestBlockID   hexutil.Bytes    `json:"latest_block_id"`
	TotalDifficulty string           `json:"total_difficulty"`
	NextDifficulty  string           `json:"next_difficulty"`
	Uncommitted     int              `json:"uncommitted"`
	Miner           database.Address `json:"miner"`
}
