// Package rollup reduces a day's site records into a daily summary.
package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/metrics"
	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/store"
)

// Service computes and stores daily summaries.
type Service struct {
	repo    store.Repository
	loc     *time.Location
	clock   shared.Clock
	metrics *metrics.Collector
}

// NewService creates a rollup service. A nil loc means time.Local and a nil
// clock means the system clock.
func NewService(repo store.Repository, loc *time.Location, clock shared.Clock, m *metrics.Collector) *Service {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, loc: loc, clock: clock, metrics: m}
}

// Today returns the current day-key.
func (s *Service) Today() string {
	return domain.DayKey(s.clock.Now(), s.loc)
}

// Run summarizes day and upserts the result. A day without records yields
// an all-zero summary.
func (s *Service) Run(ctx context.Context, day string) (domain.DailySummary, error) {
	summary, err := s.run(ctx, day)
	s.metrics.Rollup(err)
	return summary, err
}

func (s *Service) run(ctx context.Context, day string) (domain.DailySummary, error) {
	if _, err := domain.ParseDay(day, s.loc); err != nil {
		return domain.DailySummary{}, err
	}

	snap, err := s.repo.GetDay(ctx, day)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("load day %s: %w", day, err)
	}

	summary := domain.NewDailySummary(day, snap)
	if err := s.repo.UpsertSummary(ctx, summary); err != nil {
		return domain.DailySummary{}, fmt.Errorf("store summary for %s: %w", day, err)
	}
	return summary, nil
}

// RunToday summarizes the current day.
func (s *Service) RunToday(ctx context.Context) (domain.DailySummary, error) {
	return s.Run(ctx, s.Today())
}
