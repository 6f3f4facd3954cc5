// Package recorder merges closed-out visits into per-day storage.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/sitetime/internal/classify"
	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/metrics"
	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/store"
)

// MinVisit is the shortest visit that gets recorded.
const MinVisit = time.Second

// Recorder classifies visits and merges them into the day's records.
type Recorder struct {
	repo    store.Repository
	loc     *time.Location
	clock   shared.Clock
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a Recorder. A nil loc means time.Local; nil clock, metrics or
// logger fall back to the system clock, no metrics and slog.Default().
func New(repo store.Repository, loc *time.Location, clock shared.Clock, m *metrics.Collector, logger *slog.Logger) *Recorder {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, loc: loc, clock: clock, metrics: m, logger: logger}
}

// Record attributes elapsed to the domain of rawURL on today's record.
// Empty, non-http and sub-second visits are dropped without error.
func (r *Recorder) Record(ctx context.Context, rawURL string, elapsed time.Duration) error {
	switch {
	case rawURL == "":
		r.discard(metrics.ReasonEmptyURL, rawURL, elapsed)
		return nil
	case !classify.IsTrackable(rawURL):
		r.discard(metrics.ReasonNotHTTP, rawURL, elapsed)
		return nil
	case elapsed < MinVisit:
		r.discard(metrics.ReasonTooShort, rawURL, elapsed)
		return nil
	}

	cats, err := r.repo.GetCategories(ctx)
	if err != nil {
		r.metrics.Discarded(metrics.ReasonStoreError)
		return fmt.Errorf("load categories: %w", err)
	}

	site := classify.Domain(rawURL)
	category := classify.New(cats).Classify(rawURL)
	day := domain.DayKey(r.clock.Now(), r.loc)
	ms := elapsed.Milliseconds()

	rec, err := r.repo.MergeVisit(ctx, day, site, category, ms)
	if err != nil {
		r.metrics.Discarded(metrics.ReasonStoreError)
		return fmt.Errorf("record visit to %s: %w", site, err)
	}

	r.metrics.Recorded(string(rec.Category), ms)
	r.logger.Debug("Visit recorded",
		"day", day,
		"domain", site,
		"category", rec.Category,
		"elapsed_ms", ms,
		"total_ms", rec.TimeSpentMs)
	return nil
}

func (r *Recorder) discard(reason, rawURL string, elapsed time.Duration) {
	r.metrics.Discarded(reason)
	r.logger.Debug("Visit discarded", "reason", reason, "url", rawURL, "elapsed_ms", elapsed.Milliseconds())
}
