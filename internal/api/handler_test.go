//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/report"
	"github.com/ashureev/sitetime/internal/rollup"
	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/store/storetest"
	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/go-chi/chi/v5"
)

type fakeTracker struct {
	mu          sync.Mutex
	state       tracker.State
	checkpoints int
	err         error
}

func (f *fakeTracker) Checkpoint(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkpoints++
	return f.err
}

func (f *fakeTracker) Snapshot() tracker.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type testEnv struct {
	router  http.Handler
	repo    *storetest.Memory
	tracker *fakeTracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	now := time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC)
	clock := shared.NewManualClock(now)

	repo := storetest.NewMemory(domain.UserCategories{
		Productive:   []string{"github.com"},
		Unproductive: []string{"facebook.com"},
	})
	repo.PutDay("2024-01-01", domain.DaySnapshot{
		"github.com":   {Domain: "github.com", TimeSpentMs: 3_600_000, Category: domain.Productive},
		"facebook.com": {Domain: "facebook.com", TimeSpentMs: 1_800_000, Category: domain.Unproductive},
	})

	ft := &fakeTracker{}
	h := NewHandler(repo,
		report.NewService(repo, time.UTC, clock),
		rollup.NewService(repo, time.UTC, clock, nil),
		ft,
	)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	NewHealthHandler(repo).RegisterHealth(r)
	return &testEnv{router: r, repo: repo, tracker: ft}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestGetReport(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/report?range=custom&start=2024-01-01&end=2024-01-01&top=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	rep := decodeBody[report.Report](t, w)
	if rep.ProductivePercentage != 67 || rep.UnproductivePercentage != 33 || rep.TotalTimeMs != 5_400_000 {
		t.Errorf("unexpected aggregate %+v", rep.Aggregation)
	}
	if len(rep.TopSites) != 1 || rep.TopSites[0].Domain != "github.com" {
		t.Errorf("unexpected top sites %+v", rep.TopSites)
	}
	if len(rep.Trend) != 1 || rep.Trend[0].Source != report.SourceDerived {
		t.Errorf("unexpected trend %+v", rep.Trend)
	}
}

func TestGetReportBadInput(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/report?range=decade",
		"/api/report?range=custom&start=2024-01-01",
		"/api/report?range=week&top=0",
		"/api/report?range=week&top=abc",
		"/api/days/2024-1-1",
		"/api/weekly?start=monday",
	} {
		if w := env.do(t, http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestGetDayAndWeekly(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/days/2024-01-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	day := decodeBody[report.DayReport](t, w)
	if day.Summary.TotalTimeMs != 5_400_000 || len(day.Sites) != 2 {
		t.Errorf("unexpected day %+v", day)
	}

	w = env.do(t, http.MethodGet, "/api/weekly?start=2024-01-03", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	week := decodeBody[report.WeeklyReport](t, w)
	if week.Week.Start != "2023-12-31" || !week.Hourly.Approximate || len(week.Insights) == 0 {
		t.Errorf("unexpected weekly report %+v", week)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := decodeBody[map[string]bool](t, w); !got["success"] {
		t.Errorf("expected success, got %v", got)
	}
	if env.tracker.checkpoints != 1 {
		t.Errorf("expected one checkpoint, got %d", env.tracker.checkpoints)
	}

	env.tracker.err = errors.New("disk full")
	if w := env.do(t, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.state = tracker.State{TabID: 3, URL: "https://github.com", StartedAt: time.Now().Add(-time.Minute), Armed: true}

	w := env.do(t, http.MethodGet, "/api/status", nil)
	status := decodeBody[StatusResponse](t, w)
	if !status.Tracking || status.State.TabID != 3 || status.ElapsedMs < 59_000 || status.Today != "2024-01-02" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestRollup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/rollup?day=2024-01-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	sum := decodeBody[domain.DailySummary](t, w)
	if sum.Date != "2024-01-01" || sum.TotalTimeMs != 5_400_000 {
		t.Errorf("unexpected summary %+v", sum)
	}

	stored, _ := env.repo.ListSummaries(context.Background())
	if len(stored) != 1 {
		t.Errorf("expected one stored summary, got %+v", stored)
	}

	w = env.do(t, http.MethodPost, "/api/rollup", nil)
	if sum := decodeBody[domain.DailySummary](t, w); sum.Date != "2024-01-02" {
		t.Errorf("expected today's rollup, got %+v", sum)
	}
}

func TestCategoriesCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/categories", CategoryRequest{Site: "https://Facebook.com/", Category: "productive"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[CategoryResponse](t, w)
	if resp.Site != "facebook.com" || !resp.Moved {
		t.Errorf("expected normalized move, got %+v", resp)
	}
	if len(resp.Categories.Unproductive) != 0 || len(resp.Categories.Productive) != 2 {
		t.Errorf("unexpected categories %+v", resp.Categories)
	}

	w = env.do(t, http.MethodDelete, "/api/categories?site=facebook.com&category=productive", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/categories?site=facebook.com&category=productive", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = env.do(t, http.MethodPut, "/api/categories", CategoriesRequest{
		Productive:   []string{"go.dev", "Go.dev"},
		Unproductive: []string{"go.dev", "news.ycombinator.com"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	cats := decodeBody[CategoryResponse](t, w).Categories
	if len(cats.Productive) != 1 || len(cats.Unproductive) != 1 || cats.Unproductive[0] != "news.ycombinator.com" {
		t.Errorf("unexpected replaced categories %+v", cats)
	}
}

func TestCategoriesRejectInvalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"neutral list", http.MethodPost, "/api/categories", CategoryRequest{Site: "a.com", Category: "neutral"}},
		{"missing site", http.MethodPost, "/api/categories", CategoryRequest{Category: "productive"}},
		{"only scheme", http.MethodPost, "/api/categories", CategoryRequest{Site: "https://", Category: "productive"}},
		{"unknown field", http.MethodPost, "/api/categories", `{"site":"a.com","category":"productive","x":1}`},
		{"empty body", http.MethodPost, "/api/categories", nil},
		{"bad delete", http.MethodDelete, "/api/categories?site=a.com&category=other", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, tt.method, tt.path, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/settings", nil)
	if got := decodeBody[domain.Settings](t, w); got != domain.DefaultSettings() {
		t.Errorf("expected defaults, got %+v", got)
	}

	want := domain.Settings{DailySummary: false, UnproductiveAlert: true, TimeThresholdMinutes: 30, ProductivityTarget: 80}
	w = env.do(t, http.MethodPut, "/api/settings", want)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got, _ := env.repo.GetSettings(context.Background()); got != want {
		t.Errorf("expected %+v stored, got %+v", want, got)
	}

	bad := want
	bad.ProductivityTarget = 101
	if w := env.do(t, http.MethodPut, "/api/settings", bad); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestClearDataAndExport(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "sitetime-export-2024-01-02.json") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	exp := decodeBody[report.Export](t, w)
	if len(exp.SiteData) != 1 || len(exp.Categories.Productive) != 1 {
		t.Errorf("unexpected export %+v", exp)
	}

	if w := env.do(t, http.MethodDelete, "/api/data", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	days, _ := env.repo.AllDays(context.Background())
	cats, _ := env.repo.GetCategories(context.Background())
	if len(days) != 0 || len(cats.Productive) != 1 {
		t.Errorf("clear must drop data and keep categories: %v %+v", days, cats)
	}
}

func TestStoreFailureIs500(t *testing.T) {
	env := newTestEnv(t)
	env.repo.Err = errors.New("disk I/O error")

	for _, path := range []string{"/api/report?range=week", "/api/categories", "/api/settings", "/api/export"} {
		w := env.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", path, w.Code)
		}
		if got := decodeBody[map[string]string](t, w); got["error"] == "" {
			t.Errorf("%s: expected JSON error body", path)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	env.repo.Err = errors.New("gone")
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if got := decodeBody[map[string]interface{}](t, w); got["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", got)
	}
}
