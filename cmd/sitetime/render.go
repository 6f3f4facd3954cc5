package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ashureev/sitetime/internal/api"
	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/report"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))

	categoryStyles = map[domain.Category]lipgloss.Style{
		domain.Productive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		domain.Unproductive: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		domain.Neutral:      lipgloss.NewStyle().Foreground(lipgloss.Color("#F7DC6F")),
	}
)

func styleFor(c domain.Category) lipgloss.Style {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return categoryStyles[domain.Neutral]
}

func round(f float64) int {
	return int(math.Round(f))
}

func bar(pct int, c domain.Category) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * barWidth / 100
	return styleFor(c).Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func renderAggregation(agg report.Aggregation) string {
	rows := []struct {
		c   domain.Category
		ms  int64
		pct int
	}{
		{domain.Productive, agg.ProductiveTimeMs, agg.ProductivePercentage},
		{domain.Unproductive, agg.UnproductiveTimeMs, agg.UnproductivePercentage},
		{domain.Neutral, agg.NeutralTimeMs, agg.NeutralPercentage},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %s\n", report.FormatDuration(agg.TotalTimeMs))
	for _, r := range rows {
		fmt.Fprintf(&b, "%-13s %s %3d%%  %s\n", r.c, bar(r.pct, r.c), r.pct, report.FormatDuration(r.ms))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSites(sites []report.Site) string {
	if len(sites) == 0 {
		return mutedStyle.Render("No sites tracked")
	}
	width := 0
	for _, s := range sites {
		if len(s.Domain) > width {
			width = len(s.Domain)
		}
	}
	var b strings.Builder
	for i, s := range sites {
		fmt.Fprintf(&b, "%2d. %-*s  %8s  %s\n", i+1, width, s.Domain, report.FormatDuration(s.TimeSpentMs), styleFor(s.Category).Render(string(s.Category)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTrend(points []report.TrendPoint) string {
	var b strings.Builder
	for _, p := range points {
		score := round(p.ProductivityScore)
		fmt.Fprintf(&b, "%s  %s %3d%%  %8s", p.Date, bar(score, domain.Productive), score, report.FormatDuration(p.TotalTimeMs))
		if p.Source == report.SourceSummary {
			b.WriteString(mutedStyle.Render("  (summary)"))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderWeeks(weeks []report.WeekPoint) string {
	var b strings.Builder
	for _, w := range weeks {
		score := round(w.ProductivityScore)
		fmt.Fprintf(&b, "%-7s %s..%s  %3d%%  %s\n", w.Label, w.Start, w.End, score, report.FormatDuration(w.TotalTimeMs))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderReport(w io.Writer, rep report.Report) {
	title := fmt.Sprintf("sitetime: %s", rep.Range)
	if len(rep.Dates) > 0 {
		title += fmt.Sprintf(" (%s to %s)", rep.Dates[0], rep.Dates[len(rep.Dates)-1])
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	if rep.Empty {
		fmt.Fprintln(w, mutedStyle.Render("No data tracked for this period"))
		return
	}
	fmt.Fprintln(w, boxStyle.Render(renderAggregation(rep.Aggregation)))
	fmt.Fprintln(w, boxStyle.Render("Top sites\n"+renderSites(rep.TopSites)))
	if len(rep.Weeks) > 0 {
		fmt.Fprintln(w, boxStyle.Render("Weekly trend\n"+renderWeeks(rep.Weeks)))
	}
}

func renderDay(w io.Writer, day report.DayReport) {
	fmt.Fprintln(w, titleStyle.Render("sitetime: "+day.Date))
	s := day.Summary
	fmt.Fprintf(w, "Total %s, productivity %d%%\n", report.FormatDuration(s.TotalTimeMs), round(s.ProductivityScore))
	fmt.Fprintln(w, renderSites(day.Sites))
}

func renderWeekly(w io.Writer, rep report.WeeklyReport) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("sitetime: week of %s", rep.Week.Start)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("previous %s, next %s", rep.Previous, rep.Next)))
	if rep.Empty {
		fmt.Fprintln(w, mutedStyle.Render("No data tracked for this week"))
		return
	}
	fmt.Fprintln(w, boxStyle.Render(renderAggregation(rep.Aggregation)))
	fmt.Fprintln(w, boxStyle.Render("Daily\n"+renderTrend(rep.Daily)))

	var b strings.Builder
	for _, in := range rep.Insights {
		title := in.Title
		if in.Approximate {
			title += mutedStyle.Render(" (approx.)")
		}
		fmt.Fprintf(&b, "• %s\n  %s\n", title, in.Description)
	}
	if b.Len() > 0 {
		fmt.Fprintln(w, boxStyle.Render("Insights\n"+strings.TrimRight(b.String(), "\n")))
	}
	fmt.Fprintln(w, boxStyle.Render("Top sites\n"+renderSites(rep.TopSites)))
}

func renderStatus(w io.Writer, st api.StatusResponse) {
	if !st.Tracking {
		fmt.Fprintln(w, mutedStyle.Render("Idle: no active session"))
		return
	}
	fmt.Fprintf(w, "%s %s (tab %d) for %s\n",
		categoryStyles[domain.Productive].Render("Tracking"),
		st.State.URL, st.State.TabID, report.FormatDuration(st.ElapsedMs))
}

func renderCategories(w io.Writer, cats domain.UserCategories) {
	for _, row := range []struct {
		c     domain.Category
		sites []string
	}{
		{domain.Productive, cats.Productive},
		{domain.Unproductive, cats.Unproductive},
	} {
		fmt.Fprintf(w, "%s (%d)\n", styleFor(row.c).Render(string(row.c)), len(row.sites))
		for _, s := range row.sites {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
}

func renderSettings(w io.Writer, s domain.Settings) {
	fmt.Fprintf(w, "daily-summary       %t\n", s.DailySummary)
	fmt.Fprintf(w, "unproductive-alert  %t\n", s.UnproductiveAlert)
	fmt.Fprintf(w, "threshold           %dm\n", s.TimeThresholdMinutes)
	fmt.Fprintf(w, "target              %d%%\n", s.ProductivityTarget)
}
