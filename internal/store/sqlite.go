package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	metaSettingsKey = "settings"
	metaSeededKey   = "categories_seeded"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
	// writeMu serializes read-modify-write operations so merges for the
	// same day never interleave.
	writeMu sync.Mutex
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// WithRetryPolicy overrides the SQLITE_BUSY retry policy.
func (s *SQLiteStore) WithRetryPolicy(p shared.RetryPolicy) *SQLiteStore {
	s.retry = p
	return s
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS site_records (
		day TEXT NOT NULL,
		domain TEXT NOT NULL,
		time_spent_ms INTEGER NOT NULL DEFAULT 0 CHECK (time_spent_ms >= 0),
		category TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (day, domain)
	);

	CREATE TABLE IF NOT EXISTS daily_summaries (
		date TEXT PRIMARY KEY,
		productive_ms INTEGER NOT NULL,
		unproductive_ms INTEGER NOT NULL,
		neutral_ms INTEGER NOT NULL,
		total_ms INTEGER NOT NULL,
		productivity_score REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS category_patterns (
		pattern TEXT PRIMARY KEY,
		category TEXT NOT NULL CHECK (category IN ('productive', 'unproductive'))
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// MergeVisit adds ms to the (day, domain) record in a single upsert.
func (s *SQLiteStore) MergeVisit(ctx context.Context, day, domainName string, category domain.Category, ms int64) (domain.SiteRecord, error) {
	if ms < 0 {
		return domain.SiteRecord{}, fmt.Errorf("merge visit: negative duration %d", ms)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO site_records (day, domain, time_spent_ms, category, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(day, domain) DO UPDATE SET
		time_spent_ms = site_records.time_spent_ms + excluded.time_spent_ms,
		updated_at = excluded.updated_at
	RETURNING domain, time_spent_ms, category`

	var rec domain.SiteRecord
	err := shared.RetryOnConflict(ctx, s.retry, "merge_visit", func() error {
		now := time.Now().Unix()
		var cat string
		if err := s.db.QueryRowContext(ctx, query, day, domainName, ms, string(category), now, now).
			Scan(&rec.Domain, &rec.TimeSpentMs, &cat); err != nil {
			return err
		}
		rec.Category = domain.Category(cat)
		return nil
	})
	if err != nil {
		return domain.SiteRecord{}, fmt.Errorf("merge visit: %w", err)
	}
	return rec, nil
}

// GetDay returns the snapshot for day.
func (s *SQLiteStore) GetDay(ctx context.Context, day string) (domain.DaySnapshot, error) {
	days, err := s.GetDays(ctx, []string{day})
	if err != nil {
		return nil, err
	}
	if snap, ok := days[day]; ok {
		return snap, nil
	}
	return domain.DaySnapshot{}, nil
}

// GetDays returns snapshots for the requested days.
func (s *SQLiteStore) GetDays(ctx context.Context, days []string) (map[string]domain.DaySnapshot, error) {
	out := make(map[string]domain.DaySnapshot)
	if len(days) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(days)), ",")
	args := make([]interface{}, len(days))
	for i, d := range days {
		args[i] = d
	}
	query := `SELECT day, domain, time_spent_ms, category FROM site_records WHERE day IN (` + placeholders + `)`

	if err := s.scanRecords(ctx, out, query, args...); err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	return out, nil
}

// AllDays returns every stored snapshot.
func (s *SQLiteStore) AllDays(ctx context.Context) (map[string]domain.DaySnapshot, error) {
	out := make(map[string]domain.DaySnapshot)
	if err := s.scanRecords(ctx, out, `SELECT day, domain, time_spent_ms, category FROM site_records`); err != nil {
		return nil, fmt.Errorf("query all days: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) scanRecords(ctx context.Context, out map[string]domain.DaySnapshot, query string, args ...interface{}) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close site record rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var day, cat string
		var rec domain.SiteRecord
		if err := rows.Scan(&day, &rec.Domain, &rec.TimeSpentMs, &cat); err != nil {
			return fmt.Errorf("scan site record: %w", err)
		}
		rec.Category = domain.Category(cat)
		snap, ok := out[day]
		if !ok {
			snap = domain.DaySnapshot{}
			out[day] = snap
		}
		snap[rec.Domain] = rec
	}
	return rows.Err()
}

// UpsertSummary stores the summary for its date.
func (s *SQLiteStore) UpsertSummary(ctx context.Context, summary domain.DailySummary) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO daily_summaries (date, productive_ms, unproductive_ms, neutral_ms, total_ms, productivity_score, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(date) DO UPDATE SET
		productive_ms = excluded.productive_ms,
		unproductive_ms = excluded.unproductive_ms,
		neutral_ms = excluded.neutral_ms,
		total_ms = excluded.total_ms,
		productivity_score = excluded.productivity_score,
		updated_at = excluded.updated_at`

	err := shared.RetryOnConflict(ctx, s.retry, "upsert_summary", func() error {
		_, err := s.db.ExecContext(ctx, query,
			summary.Date, summary.ProductiveTimeMs, summary.UnproductiveTimeMs,
			summary.NeutralTimeMs, summary.TotalTimeMs, summary.ProductivityScore,
			time.Now().Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// ListSummaries returns the summary history ordered by date.
func (s *SQLiteStore) ListSummaries(ctx context.Context) ([]domain.DailySummary, error) {
	query := `
		SELECT date, productive_ms, unproductive_ms, neutral_ms, total_ms, productivity_score
		FROM daily_summaries ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close summary rows", "error", closeErr)
		}
	}()

	summaries := []domain.DailySummary{}
	for rows.Next() {
		var sum domain.DailySummary
		if err := rows.Scan(
			&sum.Date, &sum.ProductiveTimeMs, &sum.UnproductiveTimeMs,
			&sum.NeutralTimeMs, &sum.TotalTimeMs, &sum.ProductivityScore,
		); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return summaries, nil
}

// GetCategories returns the user's category lists in insertion order.
func (s *SQLiteStore) GetCategories(ctx context.Context) (domain.UserCategories, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pattern, category FROM category_patterns ORDER BY rowid`)
	if err != nil {
		return domain.UserCategories{}, fmt.Errorf("query categories: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close category rows", "error", closeErr)
		}
	}()

	cats := domain.UserCategories{Productive: []string{}, Unproductive: []string{}}
	for rows.Next() {
		var pattern, cat string
		if err := rows.Scan(&pattern, &cat); err != nil {
			return domain.UserCategories{}, fmt.Errorf("scan category row: %w", err)
		}
		switch domain.Category(cat) {
		case domain.Productive:
			cats.Productive = append(cats.Productive, pattern)
		case domain.Unproductive:
			cats.Unproductive = append(cats.Unproductive, pattern)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.UserCategories{}, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// AddCategory puts pattern on the given list, moving it off the other one.
func (s *SQLiteStore) AddCategory(ctx context.Context, pattern string, category domain.Category) (bool, error) {
	if category != domain.Productive && category != domain.Unproductive {
		return false, domain.ErrInvalidCategory
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var moved bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT category FROM category_patterns WHERE pattern = ?`, pattern).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("lookup pattern: %w", err)
		case current == string(category):
			return nil
		default:
			moved = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM category_patterns WHERE pattern = ?`, pattern); err != nil {
				return fmt.Errorf("remove pattern from %s: %w", current, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO category_patterns (pattern, category) VALUES (?, ?)`, pattern, string(category)); err != nil {
			return fmt.Errorf("insert pattern: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("add category: %w", err)
	}
	return moved, nil
}

// RemoveCategory deletes pattern from the given list.
func (s *SQLiteStore) RemoveCategory(ctx context.Context, pattern string, category domain.Category) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM category_patterns WHERE pattern = ? AND category = ?`, pattern, string(category))
	if err != nil {
		return false, fmt.Errorf("remove category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplaceCategories overwrites both lists. A pattern present on both input
// lists is kept on the productive one.
func (s *SQLiteStore) ReplaceCategories(ctx context.Context, cats domain.UserCategories) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceCategoriesTx(ctx, tx, cats)
	})
	if err != nil {
		return fmt.Errorf("replace categories: %w", err)
	}
	return nil
}

func replaceCategoriesTx(ctx context.Context, tx *sql.Tx, cats domain.UserCategories) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}
	insert := `INSERT INTO category_patterns (pattern, category) VALUES (?, ?) ON CONFLICT(pattern) DO NOTHING`
	for _, p := range cats.Productive {
		if _, err := tx.ExecContext(ctx, insert, p, string(domain.Productive)); err != nil {
			return fmt.Errorf("insert productive pattern: %w", err)
		}
	}
	for _, p := range cats.Unproductive {
		if _, err := tx.ExecContext(ctx, insert, p, string(domain.Unproductive)); err != nil {
			return fmt.Errorf("insert unproductive pattern: %w", err)
		}
	}
	return nil
}

// SeedCategories installs cats the first time a database is opened.
func (s *SQLiteStore) SeedCategories(ctx context.Context, cats domain.UserCategories) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var seeded bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			metaSeededKey, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("mark seeded: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		seeded = true
		return replaceCategoriesTx(ctx, tx, cats)
	})
	if err != nil {
		return false, fmt.Errorf("seed categories: %w", err)
	}
	return seeded, nil
}

// GetSettings returns stored settings or the defaults.
func (s *SQLiteStore) GetSettings(ctx context.Context) (domain.Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaSettingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("query settings: %w", err)
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists settings as JSON.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings domain.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, metaSettingsKey, string(payload))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ClearTracking removes all site records and summaries.
func (s *SQLiteStore) ClearTracking(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM site_records`); err != nil {
			return fmt.Errorf("delete site records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_summaries`); err != nil {
			return fmt.Errorf("delete summaries: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear tracking: %w", err)
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
