// Package difficulty calculates the difficulty the next block on a chain must
// carry, based on the rate difficulty was accepted over recent blocks.
package difficulty

import (
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/holiman/uint256"
)

// Retarget parameters.
const (
	Window          = 10
	TargetRatio     = 120
	DefaultBaseline = 1000
)

// Oracle calculates the expected difficulty of the next block.
type Oracle struct {
	Baseline uint256.Int
}

// Default returns an oracle using the default baseline difficulty.
func Default() Oracle {
	return Oracle{Baseline: *uint256.NewInt(DefaultBaseline)}
}

// New returns an oracle using the specified baseline difficulty.
func New(baseline uint256.Int) Oracle {
	return Oracle{Baseline: baseline}
}

// Calculate returns the difficulty for the block following the chain. Chains
// of Window blocks or fewer use the baseline. Otherwise the difficulty
// accepted over the last Window blocks is divided by the seconds they spanned
// and scaled by TargetRatio.
func (o Oracle) Calculate(chain []database.Block) uint256.Int {
	if len(chain) <= Window {
		return o.Baseline
	}

	var sum uint256.Int
	for _, block := range chain[len(chain)-Window:] {
		sum.Add(&sum, &block.Difficulty)
	}

	last := chain[len(chain)-1].Timestamp
	first := chain[len(chain)-Window-1].Timestamp

	elapsed := uint64(1)
	if last > first {
		elapsed = last - first
	}

	var next uint256.Int
	next.Div(&sum, uint256.NewInt(elapsed))
	next.Mul(&next, uint256.NewInt(TargetRatio))

	return clamp(next)
}

// clamp keeps the difficulty within the range a block can carry.
func clamp(d uint256.Int) uint256.Int {
	if d.IsZero() {
		return *uint256.NewInt(1)
	}

	if limit := database.MaxDifficulty(); d.Gt(&limit) {
		return limit
	}

	return d
}
