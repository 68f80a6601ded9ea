package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/CESMikef/cadastral-automation/pkg/layer"
	"github.com/CESMikef/cadastral-automation/pkg/pipeline"
	"github.com/CESMikef/cadastral-automation/pkg/progress"
)

// Messages sent into the run model.
type (
	stageMsg   progress.Event
	warnMsg    string
	runDoneMsg struct {
		result *pipeline.Result
		err    error
	}
	tickMsg time.Time
)

// runModel is the bubbletea model showing pipeline stages as they execute.
// Completed stages get a check mark, the active stage an animated spinner.
// Ctrl-C cancels the underlying run via its context; the model waits for
// the pipeline to acknowledge before quitting.
type runModel struct {
	title  string
	extra  int // finalization steps shown in the denominator (save, finalize)
	cancel context.CancelFunc

	stages     []progress.Event
	warnings   []string
	frame      int
	cancelling bool
	done       bool

	result *pipeline.Result
	err    error
}

// newRunModel creates a stage-progress model. cancel aborts the pipeline
// run; extra is added to the displayed step total for the finalization
// steps the caller performs after the pipeline.
func newRunModel(title string, extra int, cancel context.CancelFunc) runModel {
	return runModel{title: title, extra: extra, cancel: cancel}
}

// programObserver forwards pipeline progress into a bubbletea program.
// Cancellation travels through the run context, not the observer.
type programObserver struct {
	p *tea.Program
}

func (o programObserver) OnStage(_ context.Context, e progress.Event) { o.p.Send(stageMsg(e)) }
func (o programObserver) OnWarning(_ context.Context, msg string)     { o.p.Send(warnMsg(msg)) }
func (o programObserver) Cancelled() bool                             { return false }

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m runModel) Init() tea.Cmd {
	return tick()
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				m.cancel()
			}
		}
	case stageMsg:
		m.stages = append(m.stages, progress.Event(msg))
	case warnMsg:
		m.warnings = append(m.warnings, string(msg))
	case runDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case tickMsg:
		m.frame++
		if !m.done {
			return m, tick()
		}
	}
	return m, nil
}

func (m runModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n\n")

	for i, e := range m.stages {
		last := i == len(m.stages)-1
		icon := styleIconSuccess.Render(iconSuccess)
		style := StyleDim
		if last && !m.done {
			icon = styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
			style = StyleValue
		}
		count := ""
		if e.FeatureCount >= 0 {
			count = StyleDim.Render(fmt.Sprintf("  (%d features)", e.FeatureCount))
		}
		fmt.Fprintf(&b, " %s %s %s%s\n",
			icon,
			StyleDim.Render(fmt.Sprintf("[%d/%d]", e.Step, e.Total+m.extra)),
			style.Render(e.Message),
			count)
	}

	for _, w := range m.warnings {
		fmt.Fprintf(&b, " %s %s\n", styleIconWarning.Render(iconWarning), StyleWarning.Render(w))
	}

	b.WriteString("\n")
	switch {
	case m.cancelling && !m.done:
		b.WriteString(StyleWarning.Render("cancelling, waiting for current stage..."))
	case !m.done:
		b.WriteString(StyleDim.Render("ctrl+c cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// tuiOptions prepares pipeline options for a TUI run. The model renders
// stage progress itself, so the pipeline logger is silenced to keep log
// lines from interleaving with the frame on stderr.
func tuiOptions(opts pipeline.Options, p *tea.Program) pipeline.Options {
	opts.Observer = programObserver{p: p}
	opts.Logger = log.New(io.Discard)
	return opts
}

// runWithTUI executes the pipeline behind a stage-progress TUI and returns
// its outcome. The TUI owns the terminal for the duration of the run.
func runWithTUI(ctx context.Context, title string, extra int, reg *layer.Registry, opts pipeline.Options) (*pipeline.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newRunModel(title, extra, cancel), tea.WithContext(ctx))
	opts = tuiOptions(opts, p)

	go func() {
		result, err := pipeline.Run(runCtx, reg, opts)
		p.Send(runDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(runModel)
	return m.result, m.err
}
