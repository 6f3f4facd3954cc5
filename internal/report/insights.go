package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ashureev/sitetime/internal/domain"
)

// Insight kinds.
const (
	InsightLevel          = "productivity_level"
	InsightBestDay        = "most_productive_day"
	InsightProductiveHour = "productive_hours"
	InsightTopDistraction = "top_unproductive_site"
)

// Insight is a short human-readable observation about a range.
type Insight struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Approximate bool   `json:"approximate,omitempty"`
}

// Insights derives observations from an aggregation, its daily trend and
// the approximate hourly distribution. target is the user's productivity
// target (0-100).
func Insights(agg Aggregation, trend []TrendPoint, hourly Hourly, target int) []Insight {
	insights := []Insight{levelInsight(agg.ProductivePercentage, target)}

	if best, ok := mostProductiveDay(trend); ok {
		name := weekdayName(best.Date)
		insights = append(insights, Insight{
			Kind:        InsightBestDay,
			Title:       fmt.Sprintf("%s was your most productive day", name),
			Description: fmt.Sprintf("You achieved a productivity score of %d%% on %s.", int(math.Round(best.ProductivityScore)), name),
		})
	}

	if hours := topProductiveHours(hourly, 3); len(hours) > 0 {
		labels := make([]string, len(hours))
		for i, h := range hours {
			labels[i] = fmt.Sprintf("%d:00", h)
		}
		insights = append(insights, Insight{
			Kind:        InsightProductiveHour,
			Title:       "Your most productive hours",
			Description: fmt.Sprintf("You're most productive at %s. Consider scheduling important tasks during these times.", strings.Join(labels, ", ")),
			Approximate: true,
		})
	}

	for _, s := range agg.Sites {
		if s.Category != domain.Unproductive {
			continue
		}
		insights = append(insights, Insight{
			Kind:        InsightTopDistraction,
			Title:       fmt.Sprintf("Time spent on %s", s.Domain),
			Description: fmt.Sprintf("You spent %s on %s. This was your most used unproductive site.", FormatDuration(s.TimeSpentMs), s.Domain),
		})
		break
	}

	return insights
}

func levelInsight(pct, target int) Insight {
	good := target - 20
	if good < 0 {
		good = 0
	}
	switch {
	case pct >= target:
		return Insight{
			Kind:        InsightLevel,
			Title:       "Great productivity!",
			Description: fmt.Sprintf("Your productivity score of %d%% meets your %d%% target. Keep up the good work!", pct, target),
		}
	case pct >= good:
		return Insight{
			Kind:        InsightLevel,
			Title:       "Good productivity",
			Description: fmt.Sprintf("Your productivity score of %d%% is good, but there's room to reach your %d%% target.", pct, target),
		}
	default:
		return Insight{
			Kind:        InsightLevel,
			Title:       "Low productivity",
			Description: fmt.Sprintf("Your productivity score of %d%% is below your %d%% target. Try to reduce time on unproductive sites.", pct, target),
		}
	}
}

// mostProductiveDay returns the first point with the highest score among
// days that have tracked time.
func mostProductiveDay(trend []TrendPoint) (TrendPoint, bool) {
	var best TrendPoint
	found := false
	for _, p := range trend {
		if p.TotalTimeMs <= 0 {
			continue
		}
		if !found || p.ProductivityScore > best.ProductivityScore {
			best = p
			found = true
		}
	}
	return best, found
}

func topProductiveHours(h Hourly, n int) []int {
	type ratio struct {
		hour  int
		value float64
	}
	var ratios []ratio
	for _, b := range h.Hours {
		if b.Total > 0 {
			ratios = append(ratios, ratio{hour: b.Hour, value: b.Productive / b.Total})
		}
	}
	sort.SliceStable(ratios, func(i, j int) bool { return ratios[i].value > ratios[j].value })
	if len(ratios) > n {
		ratios = ratios[:n]
	}
	out := make([]int, len(ratios))
	for i, r := range ratios {
		out[i] = r.hour
	}
	return out
}

func weekdayName(day string) string {
	t, err := time.Parse(domain.DayLayout, day)
	if err != nil {
		return day
	}
	return t.Weekday().String()
}

// FormatDuration renders milliseconds as "1h 5m" or "5m".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60_000
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
