// Package progress decouples pipeline orchestration from any presentation
// layer.
//
// The orchestrator emits one structured event per stage and polls the same
// observer for user-initiated cancellation between stages. Observers are
// passed explicitly into the pipeline entry point; a no-op implementation
// is used when the caller does not care.
//
// Consumers can adapt a plain function with ObserverFunc:
//
//	obs := progress.ObserverFunc(func(e progress.Event) {
//	    log.Infof("[%d/%d] %s", e.Step, e.Total, e.Message)
//	})
package progress

import "context"

// Event describes one pipeline stage transition.
type Event struct {
	// Step is the 1-based ordinal of the stage within the run.
	Step int
	// Total is the number of stages the run will execute.
	Total int
	// Message is a human-readable stage description.
	Message string
	// FeatureCount is the running feature count after the previous stage,
	// or -1 when no count is available yet.
	FeatureCount int
}

// Observer receives pipeline progress events and answers cancellation
// polls. Implementations must be cheap: events are emitted synchronously
// between stages and block the pipeline while handled.
type Observer interface {
	// OnStage is called once at the start of every pipeline stage.
	OnStage(ctx context.Context, e Event)

	// OnWarning reports a non-fatal condition (degenerate geometry,
	// tessellation undercount). The pipeline continues after the call.
	OnWarning(ctx context.Context, message string)

	// Cancelled is polled between stages; returning true aborts the run
	// with a cancelled outcome, distinct from a processing failure.
	Cancelled() bool
}

// Noop is an Observer that ignores all events and never cancels.
type Noop struct{}

func (Noop) OnStage(context.Context, Event)    {}
func (Noop) OnWarning(context.Context, string) {}
func (Noop) Cancelled() bool                   { return false }

// ObserverFunc adapts a function to the Observer interface. Warnings are
// delivered as events with Step 0 and the warning text as the message;
// cancellation is never requested.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnStage(_ context.Context, e Event) { f(e) }
func (f ObserverFunc) OnWarning(_ context.Context, msg string) {
	f(Event{Message: msg, FeatureCount: -1})
}
func (f ObserverFunc) Cancelled() bool { return false }

// OrNoop returns obs, or a Noop observer when obs is nil.
func OrNoop(obs Observer) Observer {
	if obs == nil {
		return Noop{}
	}
	return obs
}
