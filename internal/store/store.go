// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/sitetime/internal/domain"
)

// Repository defines the interface for persisting tracked time, summaries
// and user configuration.
type Repository interface {
	// MergeVisit adds ms to the (day, domain) record, creating it with the
	// given category when absent. The category of an existing record is
	// never changed. The merge is atomic with respect to concurrent calls.
	MergeVisit(ctx context.Context, day, domainName string, category domain.Category, ms int64) (domain.SiteRecord, error)

	// GetDay returns the snapshot for day. A missing day yields an empty snapshot.
	GetDay(ctx context.Context, day string) (domain.DaySnapshot, error)

	// GetDays returns snapshots keyed by day for the requested days.
	// Days without data are absent from the result.
	GetDays(ctx context.Context, days []string) (map[string]domain.DaySnapshot, error)

	// AllDays returns every stored snapshot keyed by day.
	AllDays(ctx context.Context) (map[string]domain.DaySnapshot, error)

	// UpsertSummary stores the summary for its date, replacing any previous one.
	UpsertSummary(ctx context.Context, summary domain.DailySummary) error

	// ListSummaries returns the summary history ordered by date.
	ListSummaries(ctx context.Context) ([]domain.DailySummary, error)

	// GetCategories returns the user's category lists in insertion order.
	GetCategories(ctx context.Context) (domain.UserCategories, error)

	// AddCategory puts pattern on the given list. moved is true when the
	// pattern was taken off the other list.
	AddCategory(ctx context.Context, pattern string, category domain.Category) (moved bool, err error)

	// RemoveCategory deletes pattern from the given list.
	RemoveCategory(ctx context.Context, pattern string, category domain.Category) (removed bool, err error)

	// ReplaceCategories overwrites both lists.
	ReplaceCategories(ctx context.Context, cats domain.UserCategories) error

	// SeedCategories installs cats once per database. It reports whether
	// the seed was applied.
	SeedCategories(ctx context.Context, cats domain.UserCategories) (bool, error)

	// GetSettings returns stored settings or the defaults.
	GetSettings(ctx context.Context) (domain.Settings, error)

	// SaveSettings persists settings.
	SaveSettings(ctx context.Context, settings domain.Settings) error

	// ClearTracking removes all site records and summaries, keeping
	// categories and settings.
	ClearTracking(ctx context.Context) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
