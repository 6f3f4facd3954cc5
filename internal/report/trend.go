package report

import (
	"fmt"

	"github.com/ashureev/sitetime/internal/domain"
)

// Source tells where a trend point came from.
type Source string

const (
	SourceSummary Source = "summary"
	SourceDerived Source = "derived"
	SourceEmpty   Source = "empty"
)

// TrendPoint is one day of a trend series.
type TrendPoint struct {
	Date               string  `json:"date"`
	ProductiveTimeMs   int64   `json:"productiveTimeMs"`
	UnproductiveTimeMs int64   `json:"unproductiveTimeMs"`
	NeutralTimeMs      int64   `json:"neutralTimeMs"`
	TotalTimeMs        int64   `json:"totalTimeMs"`
	ProductivityScore  float64 `json:"productivityScore"`
	Source             Source  `json:"source"`
}

// Trend builds one point per date. A stored summary wins (first match in
// history order); otherwise the point is derived from the day's snapshot;
// otherwise it is zero.
func Trend(dates []string, summaries []domain.DailySummary, days map[string]domain.DaySnapshot) []TrendPoint {
	byDate := make(map[string]domain.DailySummary, len(summaries))
	for _, s := range summaries {
		if _, seen := byDate[s.Date]; !seen {
			byDate[s.Date] = s
		}
	}

	points := make([]TrendPoint, 0, len(dates))
	for _, date := range dates {
		if s, ok := byDate[date]; ok {
			points = append(points, TrendPoint{
				Date:               date,
				ProductiveTimeMs:   s.ProductiveTimeMs,
				UnproductiveTimeMs: s.UnproductiveTimeMs,
				NeutralTimeMs:      s.NeutralTimeMs,
				TotalTimeMs:        s.TotalTimeMs,
				ProductivityScore:  s.ProductivityScore,
				Source:             SourceSummary,
			})
			continue
		}
		if snap := days[date]; len(snap) > 0 {
			s := domain.NewDailySummary(date, snap)
			points = append(points, TrendPoint{
				Date:               date,
				ProductiveTimeMs:   s.ProductiveTimeMs,
				UnproductiveTimeMs: s.UnproductiveTimeMs,
				NeutralTimeMs:      s.NeutralTimeMs,
				TotalTimeMs:        s.TotalTimeMs,
				ProductivityScore:  s.ProductivityScore,
				Source:             SourceDerived,
			})
			continue
		}
		points = append(points, TrendPoint{Date: date, Source: SourceEmpty})
	}
	return points
}

// WeekPoint is a trend bucket of up to seven consecutive points.
type WeekPoint struct {
	Label             string  `json:"label"`
	Start             string  `json:"start"`
	End               string  `json:"end"`
	ProductivityScore float64 `json:"productivityScore"`
	TotalTimeMs       int64   `json:"totalTimeMs"`
}

// GroupByWeek chunks a trend into runs of seven points. The score is the
// mean over days that have time; time is summed. A trailing chunk without
// any tracked time is dropped.
func GroupByWeek(points []TrendPoint) []WeekPoint {
	var weeks []WeekPoint
	for i := 0; i < len(points); i += 7 {
		end := i + 7
		if end > len(points) {
			end = len(points)
		}
		chunk := points[i:end]

		var scoreSum float64
		var active int
		var total int64
		for _, p := range chunk {
			if p.TotalTimeMs > 0 {
				scoreSum += p.ProductivityScore
				active++
			}
			total += p.TotalTimeMs
		}

		last := end == len(points)
		if last && active == 0 {
			break
		}

		w := WeekPoint{
			Label:       fmt.Sprintf("Week %d", len(weeks)+1),
			Start:       chunk[0].Date,
			End:         chunk[len(chunk)-1].Date,
			TotalTimeMs: total,
		}
		if active > 0 {
			w.ProductivityScore = scoreSum / float64(active)
		}
		weeks = append(weeks, w)
	}
	if weeks == nil {
		weeks = []WeekPoint{}
	}
	return weeks
}
