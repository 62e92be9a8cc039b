package chain

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// ErrReorgNotHeavier is returned when a competing branch does not carry
// strictly more total difficulty than the current chain.
var ErrReorgNotHeavier = errors.New("branch is not heavier than the current chain")

// VerifyReorg builds the chain that results from replacing the tail of old
// with the branch, starting at the height of the first branch block. The new
// chain is returned only if it is strictly heavier. The old state is never
// modified.
func VerifyReorg(old *State, branch []database.Block) (*State, error) {
	if len(branch) == 0 {
		return nil, fmt.Errorf("%w: empty branch", ErrReorgNotHeavier)
	}

	height := branch[0].Height
	if height > uint64(old.Len()) {
		return nil, fmt.Errorf("%w: branch starts at %d, chain length %d", ErrWrongHeight, height, old.Len())
	}

	candidate := old.Clone()

	for uint64(candidate.Len()) > height {
		if err := candidate.UndoLastBlock(); err != nil {
			return nil, err
		}
	}

	for _, block := range branch {
		if err := candidate.VerifyAndApplyBlock(block); err != nil {
			return nil, fmt.Errorf("reorg: %w", err)
		}
	}

	oldTotal := old.TotalDifficulty()
	newTotal := candidate.TotalDifficulty()
	if !newTotal.Gt(&oldTotal) {
		return nil, fmt.Errorf("%w: branch %s, chain %s", ErrReorgNotHeavier, newTotal.Dec(), oldTotal.Dec())
	}

	return candidate, nil
}
