// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
)

// Default values used when no genesis file is provided.
const (
	DefaultDifficulty    = 1000
	DefaultTransPerBlock = 25
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time `json:"date"`
	ChainID       uint16    `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions a miner places in a block.
	Difficulty    uint64    `json:"difficulty"`      // Baseline difficulty used until the chain has enough history.
}

// Default returns the genesis used when the node is not handed a file.
func Default() Genesis {
	return Genesis{
		Date:          time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: DefaultTransPerBlock,
		Difficulty:    DefaultDifficulty,
	}
}

// Baseline returns the baseline difficulty as a 256 bit integer.
func (g Genesis) Baseline() uint256.Int {
	return *uint256.NewInt(g.Difficulty)
}

// =============================================================================

// Load opens and consumes the genesis file. An empty path returns the default
// genesis.
func Load(path string) (Genesis, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if genesis.Difficulty == 0 {
		return Genesis{}, fmt.Errorf("genesis: difficulty must be positive")
	}

	if genesis.TransPerBlock == 0 || genesis.TransPerBlock > DefaultTransPerBlock {
		return Genesis{}, fmt.Errorf("genesis: trans_per_block must be between 1 and %d", DefaultTransPerBlock)
	}

	return genesis, nil
}
