package progress

import (
	"context"
	"testing"
)

func TestNoopDoesNotPanic(t *testing.T) {
	ctx := context.Background()

	var obs Observer = Noop{}
	obs.OnStage(ctx, Event{Step: 1, Total: 8, Message: "Buffering roads", FeatureCount: 42})
	obs.OnWarning(ctx, "2 points did not get tessellation cells")
	if obs.Cancelled() {
		t.Error("Noop.Cancelled() = true, want false")
	}
}

func TestObserverFunc(t *testing.T) {
	var events []Event
	obs := ObserverFunc(func(e Event) { events = append(events, e) })

	obs.OnStage(context.Background(), Event{Step: 2, Total: 8, Message: "Tessellating", FeatureCount: 10})
	obs.OnWarning(context.Background(), "degenerate input")

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Step != 2 || events[0].Message != "Tessellating" {
		t.Errorf("stage event = %+v", events[0])
	}
	if events[1].Step != 0 || events[1].Message != "degenerate input" || events[1].FeatureCount != -1 {
		t.Errorf("warning event = %+v", events[1])
	}
	if obs.Cancelled() {
		t.Error("ObserverFunc.Cancelled() = true, want false")
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(Noop); !ok {
		t.Error("OrNoop(nil) should return Noop")
	}
	obs := ObserverFunc(func(Event) {})
	if _, ok := OrNoop(obs).(ObserverFunc); !ok {
		t.Error("OrNoop should pass through non-nil observers")
	}
}
