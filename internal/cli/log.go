package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// elapsed tracks the start time of an operation and logs completion with
// the elapsed duration. Sequential use by a single goroutine only.
type elapsed struct {
	logger *log.Logger
	start  time.Time
}

// newElapsed creates a tracker that captures the current time as start.
func newElapsed(l *log.Logger) *elapsed {
	return &elapsed{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, rounded to the millisecond.
// Example output: "Generated 412 parcels (1.234s)"
func (e *elapsed) done(msg string) {
	e.logger.Infof("%s (%s)", msg, time.Since(e.start).Round(time.Millisecond))
}
