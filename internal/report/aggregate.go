package report

import (
	"math"
	"sort"

	"github.com/ashureev/sitetime/internal/domain"
)

// Top-N sizes for the compact and full site lists.
const (
	TopCompact = 5
	TopFull    = 10
)

// Site is one domain's time over a range.
type Site struct {
	Domain      string          `json:"domain"`
	TimeSpentMs int64           `json:"timeSpentMs"`
	Category    domain.Category `json:"category"`
}

// Aggregation is the category and per-domain total over a set of days.
type Aggregation struct {
	ProductiveTimeMs       int64  `json:"productiveTimeMs"`
	UnproductiveTimeMs     int64  `json:"unproductiveTimeMs"`
	NeutralTimeMs          int64  `json:"neutralTimeMs"`
	TotalTimeMs            int64  `json:"totalTimeMs"`
	ProductivePercentage   int    `json:"productivePercentage"`
	UnproductivePercentage int    `json:"unproductivePercentage"`
	NeutralPercentage      int    `json:"neutralPercentage"`
	Sites                  []Site `json:"sites"`
}

// Aggregate sums the snapshots for dates. Missing days count as empty.
// Sites are ordered by time descending; ties keep first-occurrence order
// (dates in the given order, domains within a day lexically).
func Aggregate(dates []string, days map[string]domain.DaySnapshot) Aggregation {
	var totals domain.CategoryTotals
	index := make(map[string]int)
	sites := []Site{}

	for _, date := range dates {
		snap := days[date]
		names := make([]string, 0, len(snap))
		for name := range snap {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			rec := snap[name]
			totals.Add(rec.Category, rec.TimeSpentMs)

			key := rec.Domain
			if key == "" {
				key = name
			}
			i, ok := index[key]
			if !ok {
				i = len(sites)
				index[key] = i
				sites = append(sites, Site{Domain: key, Category: rec.Category})
			}
			sites[i].TimeSpentMs += rec.TimeSpentMs
		}
	}

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].TimeSpentMs > sites[j].TimeSpentMs
	})

	total := totals.TotalMs()
	return Aggregation{
		ProductiveTimeMs:       totals.ProductiveMs,
		UnproductiveTimeMs:     totals.UnproductiveMs,
		NeutralTimeMs:          totals.NeutralMs,
		TotalTimeMs:            total,
		ProductivePercentage:   Percent(totals.ProductiveMs, total),
		UnproductivePercentage: Percent(totals.UnproductiveMs, total),
		NeutralPercentage:      Percent(totals.NeutralMs, total),
		Sites:                  sites,
	}
}

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// TopSites returns the first n sites of an already sorted list.
func TopSites(sites []Site, n int) []Site {
	if n < 0 {
		n = 0
	}
	if n > len(sites) {
		n = len(sites)
	}
	out := make([]Site, n)
	copy(out, sites[:n])
	return out
}

// CategoryShare is one row of the category breakdown.
type CategoryShare struct {
	Category    domain.Category `json:"category"`
	TimeSpentMs int64           `json:"timeSpentMs"`
	Percentage  int             `json:"percentage"`
	Sites       []Site          `json:"sites"`
}

// Breakdown groups an aggregation's sites by category, always in the order
// productive, unproductive, neutral.
func Breakdown(agg Aggregation) []CategoryShare {
	order := []domain.Category{domain.Productive, domain.Unproductive, domain.Neutral}
	rows := make([]CategoryShare, len(order))
	pos := make(map[domain.Category]int, len(order))
	for i, c := range order {
		rows[i] = CategoryShare{Category: c, Sites: []Site{}}
		pos[c] = i
	}
	for _, s := range agg.Sites {
		i, ok := pos[s.Category]
		if !ok {
			i = pos[domain.Neutral]
		}
		rows[i].TimeSpentMs += s.TimeSpentMs
		rows[i].Sites = append(rows[i].Sites, s)
	}
	for i := range rows {
		rows[i].Percentage = Percent(rows[i].TimeSpentMs, agg.TotalTimeMs)
	}
	return rows
}
