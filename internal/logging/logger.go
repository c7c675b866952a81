package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New constructs a text logger writing to w (stderr when nil) at the given level.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h).With("app", "topicloom")
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps debug/warn/error to their slog level, anything else to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Timer logs the time spent per stage and since the first mark.
type Timer struct {
	log   *slog.Logger
	start time.Time
	prev  time.Time
	marks []Mark
}

// Mark is one finished stage.
type Mark struct {
	Stage   string        `json:"stage" yaml:"stage"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

func NewTimer(log *slog.Logger) *Timer {
	now := time.Now()
	return &Timer{log: log, start: now, prev: now}
}

// Mark records the end of a stage.
func (t *Timer) Mark(stage string) {
	now := time.Now()
	d := now.Sub(t.prev)
	t.prev = now
	t.marks = append(t.marks, Mark{Stage: stage, Elapsed: d})
	if t.log != nil {
		t.log.Debug("stage done", "stage", stage, "elapsed", d.Round(time.Millisecond), "total", now.Sub(t.start).Round(time.Millisecond))
	}
}

func (t *Timer) Marks() []Mark {
	out := make([]Mark, len(t.marks))
	copy(out, t.marks)
	return out
}

// Total is the time since the timer was created.
func (t *Timer) Total() time.Duration { return time.Since(t.start) }
