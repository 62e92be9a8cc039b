package chain_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/difficulty"
	"github.com/holiman/uint256"
)

func Test_VerifyReorg(t *testing.T) {
	senderKey := loadKey(t, senderHexKey)
	sender := address(t, senderKey)
	recipient := address(t, loadKey(t, recipientHexKey))
	miner := address(t, loadKey(t, minerHexKey))

	// The current chain: genesis paying the sender, then two blocks mined by
	// the miner with a transfer in the first one.
	old := chain.New(difficulty.New(*uint256.NewInt(16)))
	apply(t, old, nextBlock(old, sender, nil, genesisTime))
	apply(t, old, nextBlock(old, miner, []database.Tx{signTx(t, senderKey, recipient, 300, 3, 1)}, genesisTime+10))
	apply(t, old, nextBlock(old, miner, nil, genesisTime+20))

	// branch builds a competing branch of n blocks from the block at height 1.
	branch := func(n int, txs []database.Tx) []database.Block {
		fork := old.Clone()
		for fork.Len() > 1 {
			if err := fork.UndoLastBlock(); err != nil {
				t.Fatalf("Should be able to rewind the fork: %s", err)
			}
		}

		var blocks []database.Block
		for i := range n {
			var bt []database.Tx
			if i == 0 {
				bt = txs
			}
			b := nextBlock(fork, recipient, bt, genesisTime+15+uint64(i))
			apply(t, fork, b)
			blocks = append(blocks, b)
		}

		return blocks
	}

	heavier := branch(3, []database.Tx{signTx(t, senderKey, miner, 700, 0, 1)})
	tie := branch(2, nil)

	invalid := branch(3, nil)
	invalid[2].Nonce++

	beyond := []database.Block{{Height: 9}}

	type table struct {
		name   string
		blocks []database.Block
		exp    error
	}

	tt := []table{
		{name: "empty", blocks: nil, exp: chain.ErrReorgNotHeavier},
		{name: "tie", blocks: tie, exp: chain.ErrReorgNotHeavier},
		{name: "shorter", blocks: tie[:1], exp: chain.ErrReorgNotHeavier},
		{name: "invalid", blocks: invalid, exp: database.ErrInvalidBlockID},
		{name: "beyond", blocks: beyond, exp: chain.ErrWrongHeight},
		{name: "heavier", blocks: heavier},
	}

	t.Log("Given the need to evaluate competing branches.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s branch.", testID, tst.name)
			{
				f := func(t *testing.T) {
					accounts := old.Accounts()
					total := old.TotalDifficulty()
					blocks := old.Blocks(0)

					candidate, err := chain.VerifyReorg(old, tst.blocks)
					if !errors.Is(err, tst.exp) || (tst.exp == nil && err != nil) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right result.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right result.", success, testID)

					after := old.TotalDifficulty()
					if !reflect.DeepEqual(accounts, old.Accounts()) || !after.Eq(&total) || !reflect.DeepEqual(blocks, old.Blocks(0)) {
						t.Fatalf("\t%s\tTest %d:\tShould leave the current chain unchanged.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the current chain unchanged.", success, testID)

					if tst.exp != nil {
						if candidate != nil {
							t.Fatalf("\t%s\tTest %d:\tShould not return a chain on failure.", failed, testID)
						}
						return
					}

					newTotal := candidate.TotalDifficulty()
					if !newTotal.Gt(&total) || candidate.Len() != 4 {
						t.Fatalf("\t%s\tTest %d:\tShould return the heavier chain.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould return the heavier chain.", success, testID)

					exp := map[database.Address]database.Account{
						sender:    {Balance: 10000 - 700, Nonce: 1},
						miner:     {Balance: 700, Nonce: 0},
						recipient: {Balance: 30000, Nonce: 0},
					}
					for addr, acct := range exp {
						if got, _ := candidate.Account(addr); got != acct {
							t.Fatalf("\t%s\tTest %d:\tShould have %+v for %s, got %+v.", failed, testID, acct, addr, got)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould replace the transactions of the old branch.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
