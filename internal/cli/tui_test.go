package cli

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/CESMikef/cadastral-automation/pkg/pipeline"
	"github.com/CESMikef/cadastral-automation/pkg/progress"
)

func TestRunModelStageProgression(t *testing.T) {
	m := newRunModel("Generating parcels", 2, func() {})

	next, _ := m.Update(stageMsg(progress.Event{Step: 1, Total: 9, Message: "Resolving input layers", FeatureCount: -1}))
	next, _ = next.Update(stageMsg(progress.Event{Step: 2, Total: 9, Message: "Reprojecting layers", FeatureCount: 4}))
	model := next.(runModel)

	if len(model.stages) != 2 {
		t.Fatalf("got %d stages, want 2", len(model.stages))
	}

	view := model.View()
	if !strings.Contains(view, "Generating parcels") {
		t.Error("view missing title")
	}
	// The denominator includes the finalization steps.
	if !strings.Contains(view, "[2/11]") {
		t.Errorf("view missing padded step counter:\n%s", view)
	}
	if !strings.Contains(view, "(4 features)") {
		t.Errorf("view missing feature count:\n%s", view)
	}
}

func TestRunModelWarnings(t *testing.T) {
	m := newRunModel("Generating parcels", 2, func() {})
	next, _ := m.Update(warnMsg("2 of 4 points did not get a tessellation cell"))
	view := next.(runModel).View()
	if !strings.Contains(view, "did not get a tessellation cell") {
		t.Errorf("view missing warning:\n%s", view)
	}
}

func TestRunModelCancellation(t *testing.T) {
	cancelled := false
	m := newRunModel("Generating parcels", 2, func() { cancelled = true })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	model := next.(runModel)
	if !cancelled {
		t.Error("ctrl+c should invoke the cancel function")
	}
	if !model.cancelling {
		t.Error("model should show the cancelling state")
	}
	if !strings.Contains(model.View(), "cancelling") {
		t.Error("view should announce cancellation")
	}

	// A second ctrl+c while cancelling must not panic or re-cancel.
	cancelled = false
	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cancelled {
		t.Error("repeat ctrl+c should not re-invoke cancel")
	}
	_ = next
}

func TestRunModelDone(t *testing.T) {
	m := newRunModel("Generating parcels", 2, func() {})
	result := &pipeline.Result{}

	next, cmd := m.Update(runDoneMsg{result: result})
	model := next.(runModel)
	if !model.done || model.result != result {
		t.Errorf("model = %+v", model)
	}
	if cmd == nil {
		t.Error("done message should quit the program")
	}
}

func TestTUIOptionsSilencePipelineLogger(t *testing.T) {
	var buf bytes.Buffer
	opts := pipeline.Options{Logger: log.New(&buf)}

	got := tuiOptions(opts, nil)
	if _, ok := got.Observer.(programObserver); !ok {
		t.Errorf("observer = %T, want programObserver", got.Observer)
	}

	got.Logger.Info("Buffering roads")
	if buf.Len() != 0 {
		t.Errorf("pipeline log reached the CLI writer during a TUI run: %q", buf.String())
	}
}

func TestProgramObserverNeverCancels(t *testing.T) {
	// Cancellation travels through the run context; the observer must not
	// report it, otherwise the pipeline would double-report.
	obs := programObserver{}
	if obs.Cancelled() {
		t.Error("programObserver.Cancelled() must be false")
	}
}
