package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/sitetime/internal/metrics"
	"github.com/ashureev/sitetime/internal/shared"
)

// Recorder receives closed-out visits.
type Recorder interface {
	Record(ctx context.Context, url string, elapsed time.Duration) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, url string, elapsed time.Duration) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, url string, elapsed time.Duration) error {
	return f(ctx, url, elapsed)
}

// Tracker owns the tracking session. Events are applied one at a time and
// every closed-out visit is handed to the recorder before the next event runs.
type Tracker struct {
	mu      sync.Mutex
	state   State
	skew    time.Duration // client clock minus tracker clock, from the last stamped event
	rec     Recorder
	clock   shared.Clock
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source. Defaults to the system clock.
func WithClock(c shared.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates an idle tracker.
func New(rec Recorder, opts ...Option) *Tracker {
	t := &Tracker{
		rec:    rec,
		clock:  shared.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle applies ev. A non-zero ev.At comes from the client's clock and
// updates the offset between the two clocks; a zero ev.At is stamped with
// the tracker's clock shifted by that offset, so every interval is measured
// on one timeline. The returned error is the recorder's; the state advances
// regardless.
func (t *Tracker) Handle(ctx context.Context, ev Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ev.At.IsZero() {
		ev.At = t.now()
	} else {
		t.skew = ev.At.Sub(t.clock.Now())
	}
	return t.apply(ctx, ev)
}

// Checkpoint records the time elapsed so far and re-opens the same session
// from now. It returns once the visit has been recorded.
func (t *Tracker) Checkpoint(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.apply(ctx, Event{Kind: Checkpoint, At: t.now()})
}

// Shutdown performs a best-effort close-out and disarms the tracker.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.apply(ctx, Event{Kind: Shutdown, At: t.now()})
}

// Snapshot returns the current session state. StartedAt is reported on the
// tracker's clock.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state
	if !st.StartedAt.IsZero() {
		st.StartedAt = st.StartedAt.Add(-t.skew)
	}
	return st
}

func (t *Tracker) now() time.Time {
	return t.clock.Now().Add(t.skew)
}

func (t *Tracker) apply(ctx context.Context, ev Event) error {
	next, visit := Transition(t.state, ev)
	t.state = next
	t.metrics.Transition(string(ev.Kind))

	if visit == nil {
		return nil
	}

	// A close-out must complete even if the triggering request goes away.
	recordCtx := context.WithoutCancel(ctx)
	if err := t.rec.Record(recordCtx, visit.URL, visit.Elapsed); err != nil {
		t.logger.Error("Failed to record visit",
			"error", err,
			"event", ev.Kind,
			"url", visit.URL,
			"elapsed_ms", visit.Elapsed.Milliseconds())
		return err
	}
	return nil
}
