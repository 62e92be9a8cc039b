package chain_test

import (
	"crypto/ecdsa"
	"errors"
	"reflect"
	"testing"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/difficulty"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	senderHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	recipientHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	minerHexKey     = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

const genesisTime = 1_600_000_000

// =============================================================================

func Test_GenesisScenario(t *testing.T) {
	miner := address(t, loadKey(t, minerHexKey))
	state := chain.New(difficulty.New(*uint256.NewInt(100000)))

	t.Log("Given the need to apply a genesis block.")
	{
		block := nextBlock(state, miner, nil, genesisTime)

		if err := state.VerifyAndApplyBlock(block); err != nil {
			t.Fatalf("\t%s\tShould be able to apply the genesis block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to apply the genesis block.", success)

		acct, _ := state.Account(miner)
		if acct != (database.Account{Balance: 10000, Nonce: 0}) {
			t.Fatalf("\t%s\tShould credit the miner with 10000, got %+v.", failed, acct)
		}
		t.Logf("\t%s\tShould credit the miner with 10000.", success)

		total := state.TotalDifficulty()
		if total.Uint64() != 100000 || state.Len() != 1 {
			t.Fatalf("\t%s\tShould accumulate the block difficulty, got %s.", failed, total.Dec())
		}
		t.Logf("\t%s\tShould accumulate the block difficulty.", success)
	}
}

func Test_TransferScenario(t *testing.T) {
	senderKey := loadKey(t, senderHexKey)
	sender := address(t, senderKey)
	recipient := address(t, loadKey(t, recipientHexKey))
	miner := address(t, loadKey(t, minerHexKey))

	state := chain.New(difficulty.New(*uint256.NewInt(16)))
	apply(t, state, nextBlock(state, sender, nil, genesisTime))

	t.Log("Given the need to apply a block with a transfer.")
	{
		tx := signTx(t, senderKey, recipient, 2500, 25, 1)
		apply(t, state, nextBlock(state, miner, []database.Tx{tx}, genesisTime+30))

		exp := map[database.Address]database.Account{
			sender:    {Balance: 10000 - 2500, Nonce: 1},
			recipient: {Balance: 2500 - 25, Nonce: 0},
			miner:     {Balance: 10000 + 25, Nonce: 0},
		}

		for addr, acct := range exp {
			got, exists := state.Account(addr)
			if !exists || got != acct {
				t.Fatalf("\t%s\tShould have %+v for %s, got %+v.", failed, acct, addr, got)
			}
		}
		t.Logf("\t%s\tShould move the funds between the accounts.", success)
	}
}

func Test_ChainRejections(t *testing.T) {
	miner := address(t, loadKey(t, minerHexKey))

	state := chain.New(difficulty.New(*uint256.NewInt(16)))
	apply(t, state, nextBlock(state, miner, nil, genesisTime))
	apply(t, state, nextBlock(state, miner, nil, genesisTime+10))

	tip, err := state.Tip()
	if err != nil {
		t.Fatalf("Should be able to get the tip: %s", err)
	}

	type table struct {
		name  string
		block database.Block
		exp   error
	}

	tt := []table{
		{
			name:  "height",
			block: mine(database.NewBlock(tip.BlockID, 3, miner, nil, genesisTime+20, state.NextDifficulty())),
			exp:   chain.ErrWrongHeight,
		},
		{
			name:  "previous",
			block: mine(database.NewBlock(tip.Previous, 2, miner, nil, genesisTime+20, state.NextDifficulty())),
			exp:   chain.ErrWrongPreviousID,
		},
		{
			name:  "timestamp",
			block: mine(database.NewBlock(tip.BlockID, 2, miner, nil, genesisTime+9, state.NextDifficulty())),
			exp:   chain.ErrTimestampRegression,
		},
		{
			name:  "difficulty",
			block: mine(database.NewBlock(tip.BlockID, 2, miner, nil, genesisTime+20, *uint256.NewInt(17))),
			exp:   database.ErrWrongDifficulty,
		},
	}

	t.Log("Given the need to reject blocks that do not extend the tip.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				accounts := state.Accounts()
				total := state.TotalDifficulty()

				err := state.VerifyAndApplyBlock(tst.block)
				if !errors.Is(err, tst.exp) {
					t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
					t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right error.", success, testID)

				after := state.TotalDifficulty()
				if state.Len() != 2 || !after.Eq(&total) || !reflect.DeepEqual(accounts, state.Accounts()) {
					t.Fatalf("\t%s\tTest %d:\tShould leave the state unmodified.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould leave the state unmodified.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ApplyUndoRoundTrip(t *testing.T) {
	senderKey := loadKey(t, senderHexKey)
	sender := address(t, senderKey)
	recipientKey := loadKey(t, recipientHexKey)
	recipient := address(t, recipientKey)
	miner := address(t, loadKey(t, minerHexKey))

	state := chain.New(difficulty.New(*uint256.NewInt(16)))
	apply(t, state, nextBlock(state, sender, nil, genesisTime))

	t.Log("Given the need to undo blocks exactly.")
	{
		blocks := [][]database.Tx{
			nil,
			{signTx(t, senderKey, recipient, 1000, 10, 1), signTx(t, senderKey, recipient, 500, 5, 2)},
			{signTx(t, senderKey, miner, 100, 100, 3)},
		}

		type snapshot struct {
			accounts database.Accounts
			total    uint256.Int
		}

		var snapshots []snapshot
		for i, txs := range blocks {
			snapshots = append(snapshots, snapshot{accounts: state.Accounts(), total: state.TotalDifficulty()})
			apply(t, state, nextBlock(state, miner, txs, genesisTime+uint64(i+1)*10))
		}

		// A recipient paying back within the chain.
		snapshots = append(snapshots, snapshot{accounts: state.Accounts(), total: state.TotalDifficulty()})
		apply(t, state, nextBlock(state, recipient, []database.Tx{signTx(t, recipientKey, sender, 1485, 0, 1)}, genesisTime+40))

		for i := len(snapshots) - 1; i >= 0; i-- {
			if err := state.UndoLastBlock(); err != nil {
				t.Fatalf("\t%s\tShould be able to undo the block: %s", failed, err)
			}

			total := state.TotalDifficulty()
			if !reflect.DeepEqual(snapshots[i].accounts, state.Accounts()) || !total.Eq(&snapshots[i].total) {
				t.Logf("\t%s\tgot: %v", failed, state.Accounts())
				t.Logf("\t%s\texp: %v", failed, snapshots[i].accounts)
				t.Fatalf("\t%s\tShould restore the state before block %d.", failed, i+1)
			}
			t.Logf("\t%s\tShould restore the state before block %d.", success, i+1)
		}

		if err := state.UndoLastBlock(); err != nil {
			t.Fatalf("\t%s\tShould be able to undo the genesis block: %s", failed, err)
		}

		total := state.TotalDifficulty()
		if state.Len() != 0 || len(state.Accounts()) != 0 || !total.IsZero() {
			t.Fatalf("\t%s\tShould be back to an empty chain.", failed)
		}
		t.Logf("\t%s\tShould be back to an empty chain.", success)

		if err := state.UndoLastBlock(); !errors.Is(err, chain.ErrEmptyChain) {
			t.Fatalf("\t%s\tShould not undo an empty chain, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould not undo an empty chain.", success)
	}
}

func Test_Clone(t *testing.T) {
	miner := address(t, loadKey(t, minerHexKey))

	state := chain.New(difficulty.New(*uint256.NewInt(16)))
	apply(t, state, nextBlock(state, miner, nil, genesisTime))

	t.Log("Given the need to clone the chain.")
	{
		clone := state.Clone()
		apply(t, clone, nextBlock(clone, miner, nil, genesisTime+10))

		acct, _ := state.Account(miner)
		if state.Len() != 1 || acct.Balance != 10000 {
			t.Fatalf("\t%s\tShould not change the original when the clone changes.", failed)
		}
		t.Logf("\t%s\tShould not change the original when the clone changes.", success)

		if err := clone.UndoLastBlock(); err != nil {
			t.Fatalf("\t%s\tShould be able to undo on the clone: %s", failed, err)
		}
		if err := clone.UndoLastBlock(); err != nil {
			t.Fatalf("\t%s\tShould be able to undo on the clone: %s", failed, err)
		}

		if _, err := state.Tip(); err != nil || state.Len() != 1 {
			t.Fatalf("\t%s\tShould keep the original blocks after undoing the clone.", failed)
		}
		t.Logf("\t%s\tShould keep the original blocks after undoing the clone.", success)
	}
}

// =============================================================================

func loadKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	return pk
}

func address(t *testing.T, pk *ecdsa.PrivateKey) database.Address {
	t.Helper()

	addr, err := database.PublicKeyToAddress(pk)
	if err != nil {
		t.Fatalf("Should be able to derive the address: %s", err)
	}

	return addr
}

func signTx(t *testing.T, pk *ecdsa.PrivateKey, to database.Address, amount uint64, fee uint64, nonce uint64) database.Tx {
	t.Helper()

	tx, err := database.CreateSignedTransaction(pk, to, amount, fee, nonce)
	if err != nil {
		t.Fatalf("Should be able to create a signed transaction: %s", err)
	}

	return tx
}

func mine(b database.Block) database.Block {
	target := b.CalculateTarget()
	for nonce := uint64(0); ; nonce++ {
		nb := b.WithNonce(nonce)
		if target.Allows(nb.BlockID) {
			return nb
		}
	}
}

// nextBlock mines a block that extends the current tip of the state.
func nextBlock(state *chain.State, miner database.Address, txs []database.Tx, timestamp uint64) database.Block {
	return mine(database.NewBlock(state.TipID(), uint64(state.Len()), miner, txs, timestamp, state.NextDifficulty()))
}

func apply(t *testing.T, state *chain.State, block database.Block) {
	t.Helper()

	if err := state.VerifyAndApplyBlock(block); err != nil {
		t.Fatalf("Should be able to apply block %d: %s", block.Height, err)
	}
}
