// Package client talks to a running sitetime daemon over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/sitetime/internal/api"
	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/report"
)

// DefaultURL is the daemon's default listen address.
const DefaultURL = "http://127.0.0.1:7411"

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sitetime: %s (HTTP %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is a sitetime API client.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for baseURL. A nil httpClient gets a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Report fetches the aggregate report for q.
func (c *Client) Report(ctx context.Context, q report.Query) (report.Report, error) {
	v := url.Values{}
	if q.Range != "" {
		v.Set("range", string(q.Range))
	}
	if q.Start != "" {
		v.Set("start", q.Start)
	}
	if q.End != "" {
		v.Set("end", q.End)
	}
	if q.Top > 0 {
		v.Set("top", strconv.Itoa(q.Top))
	}
	var out report.Report
	err := c.do(ctx, http.MethodGet, "/api/report", v, nil, &out)
	return out, err
}

// Day fetches one day's records.
func (c *Client) Day(ctx context.Context, day string) (report.DayReport, error) {
	var out report.DayReport
	err := c.do(ctx, http.MethodGet, "/api/days/"+url.PathEscape(day), nil, nil, &out)
	return out, err
}

// Weekly fetches the week containing start; empty means this week.
func (c *Client) Weekly(ctx context.Context, start string) (report.WeeklyReport, error) {
	v := url.Values{}
	if start != "" {
		v.Set("start", start)
	}
	var out report.WeeklyReport
	err := c.do(ctx, http.MethodGet, "/api/weekly", v, nil, &out)
	return out, err
}

// Status fetches the live tracking state.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// Refresh checkpoints the active session.
func (c *Client) Refresh(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/refresh", nil, nil, nil)
}

// Rollup summarizes day (empty means today) and returns the summary.
func (c *Client) Rollup(ctx context.Context, day string) (domain.DailySummary, error) {
	v := url.Values{}
	if day != "" {
		v.Set("day", day)
	}
	var out domain.DailySummary
	err := c.do(ctx, http.MethodPost, "/api/rollup", v, nil, &out)
	return out, err
}

// Categories fetches both category lists.
func (c *Client) Categories(ctx context.Context) (domain.UserCategories, error) {
	var out domain.UserCategories
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &out)
	return out, err
}

// AddCategory puts site on the category list.
func (c *Client) AddCategory(ctx context.Context, site string, category domain.Category) (api.CategoryResponse, error) {
	var out api.CategoryResponse
	req := api.CategoryRequest{Site: site, Category: string(category)}
	err := c.do(ctx, http.MethodPost, "/api/categories", nil, req, &out)
	return out, err
}

// RemoveCategory takes site off the category list.
func (c *Client) RemoveCategory(ctx context.Context, site string, category domain.Category) (api.CategoryResponse, error) {
	v := url.Values{"site": {site}, "category": {string(category)}}
	var out api.CategoryResponse
	err := c.do(ctx, http.MethodDelete, "/api/categories", v, nil, &out)
	return out, err
}

// ReplaceCategories overwrites both lists.
func (c *Client) ReplaceCategories(ctx context.Context, cats domain.UserCategories) (domain.UserCategories, error) {
	var out api.CategoryResponse
	req := api.CategoriesRequest{Productive: cats.Productive, Unproductive: cats.Unproductive}
	err := c.do(ctx, http.MethodPut, "/api/categories", nil, req, &out)
	return out.Categories, err
}

// Settings fetches the user settings.
func (c *Client) Settings(ctx context.Context) (domain.Settings, error) {
	var out domain.Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, nil, &out)
	return out, err
}

// SaveSettings replaces the user settings.
func (c *Client) SaveSettings(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	var out domain.Settings
	err := c.do(ctx, http.MethodPut, "/api/settings", nil, s, &out)
	return out, err
}

// Clear deletes all tracked time.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/data", nil, nil, nil)
}

// Export streams the full JSON export to w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/export", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
// The caller closes the body on success.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return nil, apiErr
}
