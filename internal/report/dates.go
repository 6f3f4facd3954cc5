// Package report aggregates stored per-day records over date ranges.
package report

import (
	"fmt"
	"time"

	"github.com/ashureev/sitetime/internal/domain"
)

// MaxRangeDays bounds custom ranges.
const MaxRangeDays = 366

// Today returns the day-key for now in loc.
func Today(now time.Time, loc *time.Location) []string {
	return []string{domain.DayKey(now, loc)}
}

// LastNDays returns n day-keys ending with today, oldest first.
func LastNDays(now time.Time, loc *time.Location, n int) []string {
	if loc == nil {
		loc = time.Local
	}
	if n <= 0 {
		return []string{}
	}
	today := midnight(now.In(loc))
	dates := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, today.AddDate(0, 0, -i).Format(domain.DayLayout))
	}
	return dates
}

// DatesBetween returns every day-key from start to end inclusive. An end
// before start yields an empty list.
func DatesBetween(start, end string, loc *time.Location) ([]string, error) {
	s, err := domain.ParseDay(start, loc)
	if err != nil {
		return nil, err
	}
	e, err := domain.ParseDay(end, loc)
	if err != nil {
		return nil, err
	}

	dates := []string{}
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if len(dates) == MaxRangeDays {
			return nil, fmt.Errorf("range %s..%s exceeds %d days", start, end, MaxRangeDays)
		}
		dates = append(dates, d.Format(domain.DayLayout))
	}
	return dates, nil
}

// Week is a Sunday to Saturday span.
type Week struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Dates []string `json:"dates"`
}

// WeekOf returns the week containing t.
func WeekOf(t time.Time, loc *time.Location) Week {
	if loc == nil {
		loc = time.Local
	}
	day := midnight(t.In(loc))
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return weekFrom(start)
}

// WeekStarting returns the week containing the given day-key.
func WeekStarting(day string, loc *time.Location) (Week, error) {
	t, err := domain.ParseDay(day, loc)
	if err != nil {
		return Week{}, err
	}
	return WeekOf(t, loc), nil
}

// Previous returns the week before w.
func (w Week) Previous(loc *time.Location) Week {
	return w.shift(-7, loc)
}

// Next returns the week after w.
func (w Week) Next(loc *time.Location) Week {
	return w.shift(7, loc)
}

func (w Week) shift(days int, loc *time.Location) Week {
	start, err := domain.ParseDay(w.Start, loc)
	if err != nil {
		return w
	}
	return weekFrom(start.AddDate(0, 0, days))
}

func weekFrom(start time.Time) Week {
	dates := make([]string, 7)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format(domain.DayLayout)
	}
	return Week{Start: dates[0], End: dates[6], Dates: dates}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
