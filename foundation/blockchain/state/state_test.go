package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/chain"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/genesis"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/miner"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/state"
	"github.com/ardanlabs/zimcoin/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/zimcoin/foundation/events"
	"github.com/ardanlabs/zimcoin/foundation/logger"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	minerHexKey     = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	otherHexKey     = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	recipientHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// =============================================================================

func Test_MineAndSubmit(t *testing.T) {
	minerKey := loadKey(t, minerHexKey)
	minerAddr := address(t, minerKey)
	recipient := address(t, loadKey(t, recipientHexKey))

	strg, err := memory.New()
	ifErrFailNow(t, err)

	st := newState(t, minerAddr, strg, false)

	t.Log("Given the need to mine blocks and accept wallet transactions.")
	{
		genesisBlock, err := st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the genesis block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine the genesis block.", success)

		if genesisBlock.Height != 0 {
			t.Fatalf("\t%s\tShould mine height 0, got %d.", failed, genesisBlock.Height)
		}

		if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
			t.Fatalf("\t%s\tShould not mine an empty block, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould not mine an empty block.", success)

		rejected := []struct {
			name string
			tx   database.Tx
			exp  error
		}{
			{"unknownsender", signTx(t, loadKey(t, otherHexKey), recipient, 10, 1, 1), database.ErrSenderNotFound},
			{"usednonce", signTx(t, minerKey, recipient, 10, 1, 0), database.ErrInvalidNonce},
			{"insufficient", signTx(t, minerKey, recipient, 10001, 1, 1), database.ErrInsufficientFunds},
		}
		for _, tst := range rejected {
			if err := st.SubmitWalletTransaction(tst.tx); !errors.Is(err, tst.exp) {
				t.Fatalf("\t%s\tShould reject the %s transaction, got %v.", failed, tst.name, err)
			}
			t.Logf("\t%s\tShould reject the %s transaction.", success, tst.name)
		}

		if err := st.SubmitWalletTransaction(signTx(t, minerKey, recipient, 1000, 10, 1)); err != nil {
			t.Fatalf("\t%s\tShould accept a wallet transaction: %s", failed, err)
		}
		if err := st.SubmitWalletTransaction(signTx(t, minerKey, recipient, 500, 5, 2)); err != nil {
			t.Fatalf("\t%s\tShould accept a pipelined wallet transaction: %s", failed, err)
		}
		if st.QueryMempoolLength() != 2 {
			t.Fatalf("\t%s\tShould hold 2 transactions in the mempool.", failed)
		}
		t.Logf("\t%s\tShould accept wallet transactions.", success)

		block, err := st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block with transactions: %s", failed, err)
		}
		if len(block.Transactions) != 2 || st.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould mine both transactions, got %d.", failed, len(block.Transactions))
		}
		t.Logf("\t%s\tShould mine both transactions.", success)

		acct, err := st.QueryAccount(minerAddr)
		ifErrFailNow(t, err)
		if acct != (database.Account{Balance: 20000 - 1500 + 15, Nonce: 2}) {
			t.Fatalf("\t%s\tShould have the miner balance, got %+v.", failed, acct)
		}

		acct, err = st.QueryAccount(recipient)
		ifErrFailNow(t, err)
		if acct != (database.Account{Balance: 1500 - 15, Nonce: 0}) {
			t.Fatalf("\t%s\tShould have the recipient balance, got %+v.", failed, acct)
		}
		t.Logf("\t%s\tShould have the right balances.", success)

		if blocks := st.QueryBlocksByHeight(0, state.QueryLatest); len(blocks) != 2 {
			t.Fatalf("\t%s\tShould return both blocks, got %d.", failed, len(blocks))
		}
		t.Logf("\t%s\tShould return both blocks.", success)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ifErrFailNow(t, st.SubmitWalletTransaction(signTx(t, minerKey, recipient, 10, 1, 3)))
		if _, err := st.MineNewBlock(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould not mine once cancelled, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould not mine once cancelled.", success)
	}
}

func Test_Replay(t *testing.T) {
	minerKey := loadKey(t, minerHexKey)
	minerAddr := address(t, minerKey)
	recipient := address(t, loadKey(t, recipientHexKey))

	strg, err := memory.New()
	ifErrFailNow(t, err)

	st := newState(t, minerAddr, strg, false)
	_, err = st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)
	ifErrFailNow(t, st.SubmitWalletTransaction(signTx(t, minerKey, recipient, 1000, 10, 1)))
	_, err = st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	t.Log("Given the need to rebuild the chain from storage.")
	{
		replayed := newState(t, minerAddr, strg, false)

		if replayed.QueryStatus().Height != 2 || fmt.Sprint(replayed.QueryAccounts()) != fmt.Sprint(st.QueryAccounts()) {
			t.Fatalf("\t%s\tShould rebuild the same chain.", failed)
		}
		t.Logf("\t%s\tShould rebuild the same chain.", success)

		// Tamper with the stored transfer.
		bd, err := strg.GetBlock(1)
		ifErrFailNow(t, err)
		txs := append([]database.Tx(nil), bd.Transactions...)
		txs[0].Amount = 5000
		bd.Transactions = txs

		ifErrFailNow(t, strg.Truncate(1))
		ifErrFailNow(t, strg.Write(bd))

		replayed = newState(t, minerAddr, strg, false)
		if replayed.QueryStatus().Height != 1 {
			t.Fatalf("\t%s\tShould stop at the tampered block, got height %d.", failed, replayed.QueryStatus().Height)
		}
		t.Logf("\t%s\tShould stop at the tampered block.", success)

		if _, err := strg.GetBlock(1); !errors.Is(err, database.ErrBlockNotFound) {
			t.Fatalf("\t%s\tShould remove the tampered block from storage, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould remove the tampered block from storage.", success)
	}
}

func Test_ProposedBlocksAndBranches(t *testing.T) {
	minerKey := loadKey(t, minerHexKey)
	minerAddr := address(t, minerKey)
	otherAddr := address(t, loadKey(t, otherHexKey))
	recipient := address(t, loadKey(t, recipientHexKey))

	strgA, err := memory.New()
	ifErrFailNow(t, err)
	strgB, err := memory.New()
	ifErrFailNow(t, err)

	nodeA := newState(t, minerAddr, strgA, false)
	nodeB := newState(t, otherAddr, strgB, true)

	t.Log("Given the need to accept blocks and branches from other nodes.")
	{
		genesisBlock, err := nodeA.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		if err := nodeB.ProcessProposedBlock(genesisBlock); err != nil {
			t.Fatalf("\t%s\tShould accept a proposed block: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a proposed block.", success)

		if err := nodeB.ProcessProposedBlock(genesisBlock); !errors.Is(err, chain.ErrWrongHeight) {
			t.Fatalf("\t%s\tShould reject a block proposed twice, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould reject a block proposed twice.", success)

		// Node A extends with a transfer, node B with two empty blocks.
		ifErrFailNow(t, nodeA.SubmitWalletTransaction(signTx(t, minerKey, recipient, 1000, 10, 1)))
		_, err = nodeA.MineNewBlock(context.Background())
		ifErrFailNow(t, err)

		for range 2 {
			_, err := nodeB.MineNewBlock(context.Background())
			ifErrFailNow(t, err)
		}

		branch := nodeB.QueryBlocksByHeight(1, state.QueryLatest)

		if err := nodeA.ProcessProposedBranch(branch[:1]); !errors.Is(err, chain.ErrReorgNotHeavier) {
			t.Fatalf("\t%s\tShould reject a branch of equal weight, got %v.", failed, err)
		}
		if nodeA.QueryStatus().Height != 2 {
			t.Fatalf("\t%s\tShould keep the current chain.", failed)
		}
		t.Logf("\t%s\tShould reject a branch of equal weight.", success)

		if err := nodeA.ProcessProposedBranch(branch); err != nil {
			t.Fatalf("\t%s\tShould accept a heavier branch: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a heavier branch.", success)

		statusA, statusB := nodeA.QueryStatus(), nodeB.QueryStatus()
		if statusA.Height != 3 || string(statusA.LatestBlockID) != string(statusB.LatestBlockID) {
			t.Fatalf("\t%s\tShould be on the same chain as the other node.", failed)
		}
		t.Logf("\t%s\tShould be on the same chain as the other node.", success)

		if _, err := nodeA.QueryAccount(recipient); err == nil {
			t.Fatalf("\t%s\tShould drop the transfer of the replaced block.", failed)
		}
		if nodeA.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould return the replaced transfer to the mempool.", failed)
		}
		t.Logf("\t%s\tShould return the replaced transfer to the mempool.", success)

		bd, err := strgA.GetBlock(2)
		ifErrFailNow(t, err)
		if string(bd.BlockID) != string(branch[1].BlockID) {
			t.Fatalf("\t%s\tShould store the new branch.", failed)
		}
		t.Logf("\t%s\tShould store the new branch.", success)
	}
}

// =============================================================================

func newState(t *testing.T, minerAddr database.Address, strg database.Storage, mineEmpty bool) *state.State {
	t.Helper()

	log, err := logger.New("TEST")
	ifErrFailNow(t, err)
	t.Cleanup(func() { log.Sync() })

	evts := events.New()
	t.Cleanup(evts.Shutdown)

	ev := func(v string, args ...any) {
		const websocketPrefix = "viewer:"

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, websocketPrefix) {
			evts.Send(s)
		}
	}

	gen := genesis.Default()
	gen.Difficulty = 16

	st, err := state.New(state.Config{
		MinerAddress:    minerAddr,
		Genesis:         gen,
		Storage:         strg,
		Miner:           miner.New(2, ev),
		SearchWindow:    1 << 20,
		MineEmptyBlocks: mineEmpty,
		EvHandler:       ev,
	})
	ifErrFailNow(t, err)

	return st
}

func loadKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	ifErrFailNow(t, err)

	return pk
}

func address(t *testing.T, pk *ecdsa.PrivateKey) database.Address {
	t.Helper()

	addr, err := database.PublicKeyToAddress(pk)
	ifErrFailNow(t, err)

	return addr
}

func signTx(t *testing.T, pk *ecdsa.PrivateKey, to database.Address, amount uint64, fee uint64, nonce uint64) database.Tx {
	t.Helper()

	tx, err := database.CreateSignedTransaction(pk, to, amount, fee, nonce)
	ifErrFailNow(t, err)

	return tx
}
