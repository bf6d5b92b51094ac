package storage_test

import (
	"testing"

	"github.com/clearsync/sequencer/state"
	"github.com/clearsync/sequencer/storage"
	"github.com/clearsync/sequencer/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func TestSaveAndGetBlock(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	block := &types.Block{ID: 1, Timestamp: 100, Transactions: nil}
	if err := s.SaveBlock(block); err != nil {
		t.Fatalf("save block: %v", err)
	}
	got, err := s.GetBlock(1)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if got.ID != block.ID || got.Timestamp != block.Timestamp {
		t.Errorf("got %+v, want %+v", got, block)
	}
	id, ok, err := s.GetLatestBlockID()
	if err != nil || !ok || id != 1 {
		t.Errorf("latest block id = (%d,%v,%v), want (1,true,nil)", id, ok, err)
	}
}

func TestGetLatestBlockIDEmptyStore(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	_, ok, err := s.GetLatestBlockID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("a fresh store should report no latest block id")
	}
}

func TestSaveAndGetTransactionsByBlock(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	tx0 := &types.Tx{ID: 1, From: addr(1), Kind: types.TxDeposit, Payload: types.DepositPayload{Asset: 0, Amount: types.NewAmount(1), Chain: 1}}
	tx1 := &types.Tx{ID: 2, From: addr(2), Kind: types.TxDeposit, Payload: types.DepositPayload{Asset: 0, Amount: types.NewAmount(2), Chain: 1}}
	if err := s.SaveTransaction(5, 0, tx0); err != nil {
		t.Fatalf("save tx0: %v", err)
	}
	if err := s.SaveTransaction(5, 1, tx1); err != nil {
		t.Fatalf("save tx1: %v", err)
	}
	txs, err := s.GetTransactionsByBlock(5)
	if err != nil {
		t.Fatalf("get transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestSaveAndGetDeal(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	d := &types.Deal{ID: 3, Maker: addr(1), Status: types.DealPending}
	if err := s.SaveDeal(d); err != nil {
		t.Fatalf("save deal: %v", err)
	}
	got, err := s.GetDeal(3)
	if err != nil {
		t.Fatalf("get deal: %v", err)
	}
	if got.ID != 3 || got.Status != types.DealPending {
		t.Errorf("got %+v", got)
	}
}

func TestGetAllDealsSortedByID(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	for _, id := range []uint64{5, 1, 3} {
		if err := s.SaveDeal(&types.Deal{ID: id, Maker: addr(1), Status: types.DealPending}); err != nil {
			t.Fatalf("save deal %d: %v", id, err)
		}
	}
	deals, err := s.GetAllDeals()
	if err != nil {
		t.Fatalf("get all deals: %v", err)
	}
	if len(deals) != 3 || deals[0].ID != 1 || deals[1].ID != 3 || deals[2].ID != 5 {
		t.Fatalf("deals not sorted ascending by id: %+v", deals)
	}
}

func TestStateSnapshotRoundTrip(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	st := state.New()
	acc := st.GetOrCreateAccount(addr(1), 0)
	acc.SetBalance(0, types.NewAmount(42))
	st.PutAccount(acc)
	st.PutDeal(&types.Deal{ID: 1, Maker: addr(1), Status: types.DealPending})

	if err := s.SaveStateSnapshot(10, st); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	restored, blockID, ok, err := s.GetLatestStateSnapshot()
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok || blockID != 10 {
		t.Fatalf("expected snapshot at block 10, got ok=%v block=%d", ok, blockID)
	}
	restoredAcc, found := restored.AccountByAddress(addr(1))
	if !found || restoredAcc.Balance(0).Cmp(types.NewAmount(42)) != 0 {
		t.Errorf("restored account mismatch: %+v", restoredAcc)
	}
	if !restored.DealExists(1) {
		t.Error("restored state should retain deal 1")
	}
}

func TestSeenDepositDedup(t *testing.T) {
	s := storage.New(storage.NewMemDB())
	seen, err := s.IsSeenDeposit("chain1:0xabc:0")
	if err != nil || seen {
		t.Fatalf("fresh store should not report the deposit as seen, got seen=%v err=%v", seen, err)
	}
	if err := s.SaveSeenDeposit("chain1:0xabc:0"); err != nil {
		t.Fatalf("save seen deposit: %v", err)
	}
	seen, err = s.IsSeenDeposit("chain1:0xabc:0")
	if err != nil || !seen {
		t.Fatalf("expected the deposit to now be seen, got seen=%v err=%v", seen, err)
	}
}
