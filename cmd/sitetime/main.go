// sitetime - command line client for the sitetime daemon
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ashureev/sitetime/internal/client"
	"github.com/ashureev/sitetime/internal/config"
	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/report"
	"github.com/spf13/cobra"
)

type options struct {
	server string
	json   bool
}

func (o *options) client() *client.Client {
	return client.New(o.server, nil)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "sitetime",
		Short:         "Query and manage the sitetime website time tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultServer := os.Getenv("SITETIME_URL")
	if defaultServer == "" {
		defaultServer = client.DefaultURL
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "daemon base URL (env SITETIME_URL)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newTrendCmd(opts))
	root.AddCommand(newDayCmd(opts))
	root.AddCommand(newWeeklyCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newRefreshCmd(opts))
	root.AddCommand(newRollupCmd(opts))
	root.AddCommand(newCategoriesCmd(opts))
	root.AddCommand(newSettingsCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newClearCmd(opts))
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newReportCmd(opts *options) *cobra.Command {
	var q report.Query
	var rng string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show time per category and top sites for a range",
		Long: `Show the category split and top sites for a date range.
Examples:
  sitetime report --range week
  sitetime report --range custom --start 2024-01-01 --end 2024-01-31 --top 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Range = report.Range(rng)
			rep, err := opts.client().Report(cmd.Context(), q)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			renderReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&rng, "range", "today", "range: today|week|month|custom")
	cmd.Flags().StringVar(&q.Start, "start", "", "custom range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.End, "end", "", "custom range end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&q.Top, "top", report.TopFull, "number of top sites")
	return cmd
}

func newTrendCmd(opts *options) *cobra.Command {
	var rng string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the daily productivity trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := opts.client().Report(cmd.Context(), report.Query{Range: report.Range(rng)})
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), rep.Trend)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, titleStyle.Render("sitetime: trend "+rng))
			_, _ = fmt.Fprintln(out, renderTrend(rep.Trend))
			if len(rep.Weeks) > 0 {
				_, _ = fmt.Fprintln(out, renderWeeks(rep.Weeks))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rng, "range", "week", "range: week|month")
	return cmd
}

func newDayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "Show every site tracked on one day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := opts.client().Day(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), day)
			}
			renderDay(cmd.OutOrStdout(), day)
			return nil
		},
	}
}

func newWeeklyCmd(opts *options) *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Show the Sunday to Saturday report with insights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := opts.client().Weekly(cmd.Context(), start)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			renderWeekly(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "week", "", "any day of the week to show (YYYY-MM-DD, default this week)")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active tracking session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), st)
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newRefreshCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Record the active session so totals are up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.client().Refresh(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "refreshed")
			return nil
		},
	}
}

func newRollupCmd(opts *options) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Store the daily summary for a day now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := opts.client().Rollup(cmd.Context(), day)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), sum)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "summary stored for %s: %s total, productivity %d%%\n",
				sum.Date, report.FormatDuration(sum.TotalTimeMs), round(sum.ProductivityScore))
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day to summarize (YYYY-MM-DD, default today)")
	return cmd
}

func newCategoriesCmd(opts *options) *cobra.Command {
	categories := &cobra.Command{Use: "categories", Short: "Manage productive and unproductive sites"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List both category lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := opts.client().Categories(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), cats)
			}
			renderCategories(cmd.OutOrStdout(), cats)
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <productive|unproductive> <site>",
		Short: "Add a site to a list, moving it off the other list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := domain.ParseCategory(args[0], true)
			if err != nil {
				return err
			}
			resp, err := opts.client().AddCategory(cmd.Context(), args[1], category)
			if err != nil {
				return err
			}
			verb := "added to"
			if resp.Moved {
				verb = "moved to"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", resp.Site, verb, resp.Category)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <productive|unproductive> <site>",
		Short: "Remove a site from a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := domain.ParseCategory(args[0], true)
			if err != nil {
				return err
			}
			resp, err := opts.client().RemoveCategory(cmd.Context(), args[1], category)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s removed from %s\n", resp.Site, resp.Category)
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print both lists as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := opts.client().Categories(cmd.Context())
			if err != nil {
				return err
			}
			data, err := config.EncodeCategories(cats)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace both lists from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			if args[0] == "-" {
				r = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			cats, err := config.DecodeCategories(r)
			if err != nil {
				return err
			}
			stored, err := opts.client().ReplaceCategories(cmd.Context(), cats)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d productive and %d unproductive sites\n",
				len(stored.Productive), len(stored.Unproductive))
			return nil
		},
	}

	categories.AddCommand(listCmd, addCmd, removeCmd, exportCmd, importCmd)
	return categories
}

func newSettingsCmd(opts *options) *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Show or change settings"}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.client().Settings(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), s)
			}
			renderSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}

	var next domain.Settings
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; unset flags keep their current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.client()
			s, err := c.Settings(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("daily-summary") {
				s.DailySummary = next.DailySummary
			}
			if flags.Changed("unproductive-alert") {
				s.UnproductiveAlert = next.UnproductiveAlert
			}
			if flags.Changed("threshold") {
				s.TimeThresholdMinutes = next.TimeThresholdMinutes
			}
			if flags.Changed("target") {
				s.ProductivityTarget = next.ProductivityTarget
			}
			if err := s.Check(); err != nil {
				return err
			}
			saved, err := c.SaveSettings(cmd.Context(), s)
			if err != nil {
				return err
			}
			renderSettings(cmd.OutOrStdout(), saved)
			return nil
		},
	}
	setCmd.Flags().BoolVar(&next.DailySummary, "daily-summary", false, "enable the daily summary")
	setCmd.Flags().BoolVar(&next.UnproductiveAlert, "unproductive-alert", false, "enable unproductive time alerts")
	setCmd.Flags().IntVar(&next.TimeThresholdMinutes, "threshold", 0, "alert threshold in minutes (1-1440)")
	setCmd.Flags().IntVar(&next.ProductivityTarget, "target", 0, "productivity target percentage (0-100)")

	settings.AddCommand(getCmd, setCmd)
	return settings
}

func newExportCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" || output == "-" {
				return opts.client().Export(cmd.Context(), cmd.OutOrStdout())
			}
			var buf bytes.Buffer
			if err := opts.client().Export(cmd.Context(), &buf); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o600); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all tracked time and summaries",
		Long:  `Delete all tracked time and daily summaries. Category lists and settings are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete all tracked data?") {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			if err := opts.client().Clear(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "all tracking data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
