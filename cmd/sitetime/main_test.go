package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/sitetime/internal/api"
	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/report"
	"github.com/ashureev/sitetime/internal/rollup"
	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/store/storetest"
	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/go-chi/chi/v5"
)

type stubTracker struct{ state tracker.State }

func (s stubTracker) Checkpoint(context.Context) error { return nil }
func (s stubTracker) Snapshot() tracker.State          { return s.state }

func newDaemon(t *testing.T) (string, *storetest.Memory) {
	t.Helper()
	clock := shared.NewManualClock(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))
	repo := storetest.NewMemory(domain.UserCategories{
		Productive:   []string{"github.com"},
		Unproductive: []string{"reddit.com"},
	})
	repo.PutDay("2024-01-03", domain.DaySnapshot{
		"github.com": {Domain: "github.com", TimeSpentMs: 3_600_000, Category: domain.Productive},
		"reddit.com": {Domain: "reddit.com", TimeSpentMs: 1_200_000, Category: domain.Unproductive},
	})

	h := api.NewHandler(repo,
		report.NewService(repo, time.UTC, clock),
		rollup.NewService(repo, time.UTC, clock, nil),
		stubTracker{},
	)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL, repo
}

func execute(t *testing.T, server string, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--server", server}, args...))
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	root.SetIn(stdin)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	server, _ := newDaemon(t)

	out, err := execute(t, server, nil, "report", "--range", "today")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	for _, want := range []string{"github.com", "reddit.com", "1h 20m", "75%"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, server, nil, "report", "--range", "custom", "--start", "2024-01-01"); err == nil {
		t.Error("expected an error for a custom range without an end")
	}
}

func TestJSONOutput(t *testing.T) {
	server, _ := newDaemon(t)

	out, err := execute(t, server, nil, "--json", "day", "2024-01-03")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	if !strings.Contains(out, `"totalTimeMs": 4800000`) {
		t.Errorf("unexpected JSON output:\n%s", out)
	}
}

func TestWeeklyAndTrendCommands(t *testing.T) {
	server, _ := newDaemon(t)

	out, err := execute(t, server, nil, "weekly", "--week", "2024-01-03")
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if !strings.Contains(out, "week of 2023-12-31") || !strings.Contains(out, "Insights") {
		t.Errorf("unexpected weekly output:\n%s", out)
	}

	out, err = execute(t, server, nil, "trend")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if !strings.Contains(out, "2024-01-03") {
		t.Errorf("trend output missing today:\n%s", out)
	}
}

func TestCategoriesCommands(t *testing.T) {
	server, repo := newDaemon(t)

	out, err := execute(t, server, nil, "categories", "add", "productive", "https://Reddit.com/")
	if err != nil {
		t.Fatalf("categories add: %v", err)
	}
	if !strings.Contains(out, "reddit.com moved to productive") {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := execute(t, server, nil, "categories", "add", "neutral", "a.com"); err == nil {
		t.Error("expected neutral to be rejected")
	}
	if _, err := execute(t, server, nil, "categories", "remove", "unproductive", "nope.com"); err == nil {
		t.Error("expected removing an unknown site to fail")
	}

	out, err = execute(t, server, nil, "categories", "export")
	if err != nil {
		t.Fatalf("categories export: %v", err)
	}
	if !strings.Contains(out, "productive:") || !strings.Contains(out, "- reddit.com") {
		t.Errorf("unexpected YAML:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "categories.yaml")
	yaml := "productive:\n  - go.dev\nunproductive:\n  - news.ycombinator.com\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, server, nil, "categories", "import", path); err != nil {
		t.Fatalf("categories import: %v", err)
	}
	cats, _ := repo.GetCategories(context.Background())
	if len(cats.Productive) != 1 || cats.Productive[0] != "go.dev" || cats.Unproductive[0] != "news.ycombinator.com" {
		t.Errorf("unexpected categories after import %+v", cats)
	}

	if _, err := execute(t, server, strings.NewReader("bogus: [1]\n"), "categories", "import", "-"); err == nil {
		t.Error("expected unknown YAML keys to be rejected")
	}
}

func TestSettingsSetKeepsUnchangedFields(t *testing.T) {
	server, repo := newDaemon(t)

	if _, err := execute(t, server, nil, "settings", "set", "--target", "85"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	got, _ := repo.GetSettings(context.Background())
	want := domain.DefaultSettings()
	want.ProductivityTarget = 85
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}

	if _, err := execute(t, server, nil, "settings", "set", "--threshold", "0"); err == nil {
		t.Error("expected an out-of-range threshold to be rejected")
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	server, repo := newDaemon(t)
	ctx := context.Background()

	out, err := execute(t, server, strings.NewReader("n\n"), "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "aborted") {
		t.Errorf("expected abort, got %q", out)
	}
	if days, _ := repo.AllDays(ctx); len(days) == 0 {
		t.Fatal("data must survive an aborted clear")
	}

	if _, err := execute(t, server, nil, "clear", "--yes"); err != nil {
		t.Fatalf("clear --yes: %v", err)
	}
	if days, _ := repo.AllDays(ctx); len(days) != 0 {
		t.Errorf("expected no data, got %v", days)
	}
}

func TestExportToFile(t *testing.T) {
	server, _ := newDaemon(t)
	path := filepath.Join(t.TempDir(), "export.json")

	if _, err := execute(t, server, nil, "export", "-o", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"siteData"`) {
		t.Errorf("unexpected export %s", data)
	}
}
