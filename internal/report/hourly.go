package report

import "github.com/ashureev/sitetime/internal/domain"

// Hour is one bucket of the synthetic hourly distribution. Values are
// fractional milliseconds.
type Hour struct {
	Hour         int     `json:"hour"`
	Productive   float64 `json:"productive"`
	Unproductive float64 `json:"unproductive"`
	Neutral      float64 `json:"neutral"`
	Total        float64 `json:"total"`
}

// Hourly is the approximate distribution of tracked time across the day.
// Visits carry no timestamps, so Approximate is always true.
type Hourly struct {
	Approximate bool   `json:"approximate"`
	Hours       []Hour `json:"hours"`
}

type band struct {
	hours                    []int
	productive, unproductive float64
}

var bands = []band{
	{hours: []int{8, 9, 10, 11}, productive: 0.5, unproductive: 0.2},
	{hours: []int{12, 13, 14, 15, 16}, productive: 0.4, unproductive: 0.3},
	{hours: []int{17, 18, 19, 20, 21}, productive: 0.1, unproductive: 0.5},
}

// HourlyDistribution spreads each day's category totals over fixed hour
// bands by fixed ratios. Neutral time is spread evenly over all band hours.
// Totals are preserved; the per-hour shape is an estimate.
func HourlyDistribution(dates []string, days map[string]domain.DaySnapshot) Hourly {
	hours := make([]Hour, 24)
	for h := range hours {
		hours[h].Hour = h
	}

	bandHours := 0
	for _, b := range bands {
		bandHours += len(b.hours)
	}

	for _, date := range dates {
		t := days[date].Totals()
		if t.TotalMs() == 0 {
			continue
		}
		neutral := float64(t.NeutralMs) / float64(bandHours)
		for _, b := range bands {
			n := float64(len(b.hours))
			prod := float64(t.ProductiveMs) * b.productive / n
			unprod := float64(t.UnproductiveMs) * b.unproductive / n
			for _, h := range b.hours {
				hours[h].Productive += prod
				hours[h].Unproductive += unprod
				hours[h].Neutral += neutral
				hours[h].Total += prod + unprod + neutral
			}
		}
	}
	return Hourly{Approximate: true, Hours: hours}
}
