package watcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clearsync/sequencer/types"
	"github.com/clearsync/sequencer/watcher"
)

type fakeClient struct {
	tip    uint64
	events []watcher.DepositEvent
}

func (c *fakeClient) LatestBlock(context.Context) (uint64, error) { return c.tip, nil }

func (c *fakeClient) DepositsInRange(context.Context, uint64, uint64) ([]watcher.DepositEvent, error) {
	return c.events, nil
}

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []*types.Tx
	rejectAll bool
}

func (s *fakeSubmitter) Submit(tx *types.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectAll {
		return errors.New("queue full")
	}
	s.submitted = append(s.submitted, tx)
	return nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDedup() *fakeDedup { return &fakeDedup{seen: make(map[string]bool)} }

func (d *fakeDedup) IsSeenDeposit(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[id], nil
}

func (d *fakeDedup) SaveSeenDeposit(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = true
	return nil
}

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

// runOnePoll starts w.Run, gives it enough ticks to poll at least once, then
// stops it and waits for the goroutine to return before the caller inspects
// shared state.
func runOnePoll(w *watcher.Watcher) {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		w.Run(context.Background(), done)
		close(stopped)
	}()
	time.Sleep(20 * time.Millisecond)
	close(done)
	<-stopped
}

func TestWatcherSubmitsNewDeposits(t *testing.T) {
	client := &fakeClient{tip: 100, events: []watcher.DepositEvent{
		{TxHash: "0xabc", User: addr(1), Asset: 0, Amount: types.NewAmount(500)},
	}}
	submitter := &fakeSubmitter{}
	dedup := newFakeDedup()

	w := watcher.New(watcher.Config{ChainID: 1, Name: "test", PollInterval: time.Millisecond, RequiredConfirmations: 2},
		client, submitter, dedup, func() uint64 { return 1 })

	runOnePoll(w)

	if n := submitter.count(); n != 1 {
		t.Fatalf("expected exactly one submitted deposit, got %d", n)
	}
	if submitter.submitted[0].From != addr(1) {
		t.Errorf("submitted tx from = %v, want %v", submitter.submitted[0].From, addr(1))
	}
}

func TestWatcherDedupsAlreadySeenDeposits(t *testing.T) {
	ev := watcher.DepositEvent{TxHash: "0xdead", User: addr(2), Asset: 0, Amount: types.NewAmount(1)}
	client := &fakeClient{tip: 100, events: []watcher.DepositEvent{ev}}
	submitter := &fakeSubmitter{}
	dedup := newFakeDedup()
	dedup.seen[ev.TxHash] = true

	w := watcher.New(watcher.Config{ChainID: 1, Name: "test", PollInterval: time.Millisecond, RequiredConfirmations: 2},
		client, submitter, dedup, func() uint64 { return 1 })

	runOnePoll(w)

	if n := submitter.count(); n != 0 {
		t.Errorf("already-seen deposit should not be resubmitted, got %d submits", n)
	}
}

func TestWatcherQueueFullDoesNotMarkSeen(t *testing.T) {
	ev := watcher.DepositEvent{TxHash: "0xfeed", User: addr(3), Asset: 0, Amount: types.NewAmount(1)}
	client := &fakeClient{tip: 100, events: []watcher.DepositEvent{ev}}
	submitter := &fakeSubmitter{rejectAll: true}
	dedup := newFakeDedup()

	w := watcher.New(watcher.Config{ChainID: 1, Name: "test", PollInterval: time.Millisecond, RequiredConfirmations: 2},
		client, submitter, dedup, func() uint64 { return 1 })

	runOnePoll(w)

	if seen, _ := dedup.IsSeenDeposit(ev.TxHash); seen {
		t.Error("a deposit rejected for back-pressure should not be marked seen, so it is retried next poll")
	}
}

func TestWatcherSkipsUnconfirmedChain(t *testing.T) {
	client := &fakeClient{tip: 1, events: []watcher.DepositEvent{
		{TxHash: "0xyoung", User: addr(4), Asset: 0, Amount: types.NewAmount(1)},
	}}
	submitter := &fakeSubmitter{}
	dedup := newFakeDedup()

	w := watcher.New(watcher.Config{ChainID: 1, Name: "test", PollInterval: time.Millisecond, RequiredConfirmations: 100},
		client, submitter, dedup, func() uint64 { return 1 })

	runOnePoll(w)

	if n := submitter.count(); n != 0 {
		t.Errorf("a chain with fewer blocks than RequiredConfirmations should produce no deposits yet, got %d", n)
	}
}
