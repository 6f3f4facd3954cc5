package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/store"
)

// ErrInvalidRange is returned for unknown or malformed range queries.
var ErrInvalidRange = errors.New("invalid range")

// Range names a preset date range.
type Range string

const (
	RangeToday  Range = "today"
	RangeWeek   Range = "week"
	RangeMonth  Range = "month"
	RangeCustom Range = "custom"
)

// Query selects the days of a report.
type Query struct {
	Range Range
	Start string // custom only
	End   string // custom only
	Top   int    // defaults to TopFull
}

// Report is the aggregated view of a range.
type Report struct {
	Range Range    `json:"range"`
	Dates []string `json:"dates"`
	Empty bool     `json:"empty"`
	Aggregation
	TopSites  []Site          `json:"topSites"`
	Breakdown []CategoryShare `json:"breakdown"`
	Trend     []TrendPoint    `json:"trend"`
	Weeks     []WeekPoint     `json:"weeks,omitempty"`
}

// DayReport is the view of a single day.
type DayReport struct {
	Date    string              `json:"date"`
	Summary domain.DailySummary `json:"summary"`
	Sites   []Site              `json:"sites"`
}

// WeeklyReport is the Sunday to Saturday report.
type WeeklyReport struct {
	Week     Week   `json:"week"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Empty    bool   `json:"empty"`
	Aggregation
	Daily    []TrendPoint `json:"daily"`
	Hourly   Hourly       `json:"hourly"`
	Insights []Insight    `json:"insights"`
	TopSites []Site       `json:"topSites"`
}

// Export is a full dump of stored data.
type Export struct {
	ExportedAt     time.Time                     `json:"exportedAt"`
	SiteData       map[string]domain.DaySnapshot `json:"siteData"`
	DailySummaries []domain.DailySummary         `json:"dailySummaries"`
	Categories     domain.UserCategories         `json:"categories"`
	Settings       domain.Settings               `json:"settings"`
}

// Service builds reports from the store.
type Service struct {
	repo  store.Repository
	loc   *time.Location
	clock shared.Clock
}

// NewService creates a report service. A nil loc means time.Local and a nil
// clock means the system clock.
func NewService(repo store.Repository, loc *time.Location, clock shared.Clock) *Service {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, loc: loc, clock: clock}
}

// Dates resolves a query into day-keys, oldest first.
func (s *Service) Dates(q Query) ([]string, error) {
	now := s.clock.Now()
	switch q.Range {
	case RangeToday, "":
		return Today(now, s.loc), nil
	case RangeWeek:
		return LastNDays(now, s.loc, 7), nil
	case RangeMonth:
		return LastNDays(now, s.loc, 30), nil
	case RangeCustom:
		if q.Start == "" || q.End == "" {
			return nil, fmt.Errorf("%w: custom range needs start and end", ErrInvalidRange)
		}
		dates, err := DatesBetween(q.Start, q.End, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRange, err)
		}
		return dates, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, q.Range)
	}
}

// Report aggregates the days selected by q.
func (s *Service) Report(ctx context.Context, q Query) (Report, error) {
	dates, err := s.Dates(q)
	if err != nil {
		return Report{}, err
	}
	if q.Range == "" {
		q.Range = RangeToday
	}

	days, summaries, err := s.load(ctx, dates)
	if err != nil {
		return Report{}, err
	}

	top := q.Top
	if top <= 0 {
		top = TopFull
	}

	agg := Aggregate(dates, days)
	r := Report{
		Range:       q.Range,
		Dates:       dates,
		Empty:       agg.TotalTimeMs == 0,
		Aggregation: agg,
		TopSites:    TopSites(agg.Sites, top),
		Breakdown:   Breakdown(agg),
		Trend:       Trend(dates, summaries, days),
	}
	if q.Range == RangeMonth {
		r.Weeks = GroupByWeek(r.Trend)
	}
	return r, nil
}

// Day returns the records of one day.
func (s *Service) Day(ctx context.Context, day string) (DayReport, error) {
	if _, err := domain.ParseDay(day, s.loc); err != nil {
		return DayReport{}, err
	}
	snap, err := s.repo.GetDay(ctx, day)
	if err != nil {
		return DayReport{}, fmt.Errorf("load day %s: %w", day, err)
	}
	agg := Aggregate([]string{day}, map[string]domain.DaySnapshot{day: snap})
	return DayReport{
		Date:    day,
		Summary: domain.NewDailySummary(day, snap),
		Sites:   agg.Sites,
	}, nil
}

// Weekly builds the report for the week containing day. An empty day means
// the current week.
func (s *Service) Weekly(ctx context.Context, day string) (WeeklyReport, error) {
	var week Week
	if day == "" {
		week = WeekOf(s.clock.Now(), s.loc)
	} else {
		w, err := WeekStarting(day, s.loc)
		if err != nil {
			return WeeklyReport{}, err
		}
		week = w
	}

	days, summaries, err := s.load(ctx, week.Dates)
	if err != nil {
		return WeeklyReport{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return WeeklyReport{}, fmt.Errorf("load settings: %w", err)
	}

	agg := Aggregate(week.Dates, days)
	daily := Trend(week.Dates, summaries, days)
	hourly := HourlyDistribution(week.Dates, days)

	r := WeeklyReport{
		Week:        week,
		Previous:    week.Previous(s.loc).Start,
		Next:        week.Next(s.loc).Start,
		Empty:       agg.TotalTimeMs == 0,
		Aggregation: agg,
		Daily:       daily,
		Hourly:      hourly,
		TopSites:    TopSites(agg.Sites, TopFull),
		Insights:    []Insight{},
	}
	if !r.Empty {
		r.Insights = Insights(agg, daily, hourly, settings.ProductivityTarget)
	}
	return r, nil
}

// Export dumps every stored record, summary, category and setting.
func (s *Service) Export(ctx context.Context) (Export, error) {
	days, err := s.repo.AllDays(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("load site data: %w", err)
	}
	summaries, err := s.repo.ListSummaries(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("load summaries: %w", err)
	}
	cats, err := s.repo.GetCategories(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("load categories: %w", err)
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("load settings: %w", err)
	}
	return Export{
		ExportedAt:     s.clock.Now(),
		SiteData:       days,
		DailySummaries: summaries,
		Categories:     cats,
		Settings:       settings,
	}, nil
}

func (s *Service) load(ctx context.Context, dates []string) (map[string]domain.DaySnapshot, []domain.DailySummary, error) {
	days, err := s.repo.GetDays(ctx, dates)
	if err != nil {
		return nil, nil, fmt.Errorf("load days: %w", err)
	}
	summaries, err := s.repo.ListSummaries(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load summaries: %w", err)
	}
	return days, summaries, nil
}
