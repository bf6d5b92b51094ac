package events_test

import (
	"testing"

	"github.com/clearsync/sequencer/events"
)

func TestEmitDeliversToSubscriber(t *testing.T) {
	e := events.NewEmitter()
	var got events.Event
	e.Subscribe(events.EventBlockCommitted, func(ev events.Event) { got = ev })

	e.Emit(events.Event{Type: events.EventBlockCommitted, BlockID: 5})

	if got.BlockID != 5 {
		t.Errorf("handler did not receive the emitted event, got %+v", got)
	}
}

func TestEmitOnlyNotifiesMatchingType(t *testing.T) {
	e := events.NewEmitter()
	calls := 0
	e.Subscribe(events.EventDealSettled, func(events.Event) { calls++ })

	e.Emit(events.Event{Type: events.EventDealCancelled})

	if calls != 0 {
		t.Errorf("subscriber for a different event type should not be called, got %d calls", calls)
	}
}

func TestEmitRecoversFromPanickingHandler(t *testing.T) {
	e := events.NewEmitter()
	secondCalled := false
	e.Subscribe(events.EventProofProduced, func(events.Event) { panic("boom") })
	e.Subscribe(events.EventProofProduced, func(events.Event) { secondCalled = true })

	e.Emit(events.Event{Type: events.EventProofProduced})

	if !secondCalled {
		t.Error("a panicking handler should not prevent subsequent handlers from running")
	}
}

func TestEmitNoSubscribersIsNoOp(t *testing.T) {
	e := events.NewEmitter()
	e.Emit(events.Event{Type: events.EventDepositIngested}) // should not panic
}
