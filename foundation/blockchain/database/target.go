package database

import (
	"math/big"

	"github.com/holiman/uint256"
)

// maxDifficulty is the largest difficulty a block can carry (2^128 - 1).
var maxDifficulty = func() *uint256.Int {
	var d uint256.Int
	d.Lsh(uint256.NewInt(1), 128)
	return d.Sub(&d, uint256.NewInt(1))
}()

// MaxDifficulty returns the largest difficulty a block can carry.
func MaxDifficulty() uint256.Int {
	return *maxDifficulty
}

// =============================================================================

// Target is the proof of work threshold floor(2^256 / difficulty). A block id
// read as a big endian integer must be strictly below it.
type Target struct {
	value uint256.Int

	// A difficulty of 1 yields 2^256, which does not fit in 256 bits. Every
	// hash is below it.
	unbounded bool
}

// NewTarget calculates the target for the difficulty. A zero difficulty has
// no valid hashes.
func NewTarget(difficulty *uint256.Int) Target {
	switch {
	case difficulty.IsZero():
		return Target{}

	case difficulty.Eq(uint256.NewInt(1)):
		return Target{unbounded: true}
	}

	// 2^256 = (2^256 - 1) + 1, so floor(2^256 / d) is one more than
	// floor((2^256 - 1) / d) exactly when d divides 2^256.
	var maxHash, quo, rem, dm1 uint256.Int
	maxHash.SetAllOne()
	quo.DivMod(&maxHash, difficulty, &rem)

	dm1.Sub(difficulty, uint256.NewInt(1))
	if rem.Eq(&dm1) {
		quo.AddUint64(&quo, 1)
	}

	return Target{value: quo}
}

// Allows reports whether the 32 byte hash is strictly below the target.
func (t Target) Allows(hash []byte) bool {
	if len(hash) != 32 {
		return false
	}

	if t.unbounded {
		return true
	}

	var h uint256.Int
	h.SetBytes32(hash)

	return h.Lt(&t.value)
}

// Big returns the target as a big integer.
func (t Target) Big() *big.Int {
	if t.unbounded {
		return new(big.Int).Lsh(big.NewInt(1), 256)
	}

	return t.value.ToBig()
}

// String implements the fmt.Stringer interface.
func (t Target) String() string {
	return "0x" + t.Big().Text(16)
}
