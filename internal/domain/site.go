package domain

import (
	"fmt"
	"time"
)

// DayLayout is the format of a day-key.
const DayLayout = "2006-01-02"

// SiteRecord is the time spent on one domain during one day.
type SiteRecord struct {
	Domain      string   `json:"domain"`
	TimeSpentMs int64    `json:"timeSpentMs"`
	Category    Category `json:"category"`
}

// DaySnapshot maps domain to its record for a single day.
type DaySnapshot map[string]SiteRecord

// Totals sums the snapshot per category.
func (d DaySnapshot) Totals() CategoryTotals {
	var t CategoryTotals
	for _, rec := range d {
		t.Add(rec.Category, rec.TimeSpentMs)
	}
	return t
}

// CategoryTotals accumulates milliseconds per category.
type CategoryTotals struct {
	ProductiveMs   int64
	UnproductiveMs int64
	NeutralMs      int64
}

// Add credits ms to the given category. Unknown categories count as neutral.
func (t *CategoryTotals) Add(c Category, ms int64) {
	switch c {
	case Productive:
		t.ProductiveMs += ms
	case Unproductive:
		t.UnproductiveMs += ms
	default:
		t.NeutralMs += ms
	}
}

// TotalMs is the sum of the three categories.
func (t CategoryTotals) TotalMs() int64 {
	return t.ProductiveMs + t.UnproductiveMs + t.NeutralMs
}

// Score is the productive share of total time as a 0-100 float.
func (t CategoryTotals) Score() float64 {
	total := t.TotalMs()
	if total <= 0 {
		return 0
	}
	return float64(t.ProductiveMs) / float64(total) * 100
}

// DailySummary is the rolled-up view of one day.
type DailySummary struct {
	Date               string  `json:"date"`
	ProductiveTimeMs   int64   `json:"productiveTimeMs"`
	UnproductiveTimeMs int64   `json:"unproductiveTimeMs"`
	NeutralTimeMs      int64   `json:"neutralTimeMs"`
	TotalTimeMs        int64   `json:"totalTimeMs"`
	ProductivityScore  float64 `json:"productivityScore"`
}

// NewDailySummary reduces a day's snapshot into a summary.
func NewDailySummary(day string, snap DaySnapshot) DailySummary {
	t := snap.Totals()
	return DailySummary{
		Date:               day,
		ProductiveTimeMs:   t.ProductiveMs,
		UnproductiveTimeMs: t.UnproductiveMs,
		NeutralTimeMs:      t.NeutralMs,
		TotalTimeMs:        t.TotalMs(),
		ProductivityScore:  t.Score(),
	}
}

// DayKey partitions a timestamp into its calendar day in loc.
// A nil loc means time.Local.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay validates a day-key and returns midnight of that day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return t, nil
}
