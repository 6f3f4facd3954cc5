// Package storetest provides an in-memory store.Repository for tests.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ashureev/sitetime/internal/domain"
	"github.com/ashureev/sitetime/internal/store"
)

var _ store.Repository = (*Memory)(nil)

// Memory is a map-backed Repository. Set Err to make every call fail.
type Memory struct {
	mu        sync.Mutex
	days      map[string]domain.DaySnapshot
	summaries map[string]domain.DailySummary
	cats      domain.UserCategories
	settings  *domain.Settings
	seeded    bool
	closed    bool

	Err error
}

// NewMemory returns an empty store holding cats.
func NewMemory(cats domain.UserCategories) *Memory {
	return &Memory{
		days:      make(map[string]domain.DaySnapshot),
		summaries: make(map[string]domain.DailySummary),
		cats:      copyCats(cats),
	}
}

// PutDay replaces a day's snapshot.
func (m *Memory) PutDay(day string, snap domain.DaySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.days[day] = copySnap(snap)
}

func (m *Memory) MergeVisit(_ context.Context, day, domainName string, category domain.Category, ms int64) (domain.SiteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domain.SiteRecord{}, m.Err
	}
	if ms < 0 {
		return domain.SiteRecord{}, errors.New("negative duration")
	}
	snap, ok := m.days[day]
	if !ok {
		snap = domain.DaySnapshot{}
		m.days[day] = snap
	}
	rec, ok := snap[domainName]
	if !ok {
		rec = domain.SiteRecord{Domain: domainName, Category: category}
	}
	rec.TimeSpentMs += ms
	snap[domainName] = rec
	return rec, nil
}

func (m *Memory) GetDay(_ context.Context, day string) (domain.DaySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return copySnap(m.days[day]), nil
}

func (m *Memory) GetDays(_ context.Context, days []string) (map[string]domain.DaySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]domain.DaySnapshot)
	for _, d := range days {
		if snap, ok := m.days[d]; ok {
			out[d] = copySnap(snap)
		}
	}
	return out, nil
}

func (m *Memory) AllDays(_ context.Context) (map[string]domain.DaySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]domain.DaySnapshot, len(m.days))
	for d, snap := range m.days {
		out[d] = copySnap(snap)
	}
	return out, nil
}

func (m *Memory) UpsertSummary(_ context.Context, s domain.DailySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.summaries[s.Date] = s
	return nil
}

func (m *Memory) ListSummaries(_ context.Context) ([]domain.DailySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]domain.DailySummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Memory) GetCategories(_ context.Context) (domain.UserCategories, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domain.UserCategories{}, m.Err
	}
	return copyCats(m.cats), nil
}

func (m *Memory) AddCategory(_ context.Context, pattern string, category domain.Category) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	var target, other *[]string
	switch category {
	case domain.Productive:
		target, other = &m.cats.Productive, &m.cats.Unproductive
	case domain.Unproductive:
		target, other = &m.cats.Unproductive, &m.cats.Productive
	default:
		return false, domain.ErrInvalidCategory
	}
	if indexOf(*target, pattern) >= 0 {
		return false, nil
	}
	moved := false
	if i := indexOf(*other, pattern); i >= 0 {
		*other = append((*other)[:i], (*other)[i+1:]...)
		moved = true
	}
	*target = append(*target, pattern)
	return moved, nil
}

func (m *Memory) RemoveCategory(_ context.Context, pattern string, category domain.Category) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	var list *[]string
	switch category {
	case domain.Productive:
		list = &m.cats.Productive
	case domain.Unproductive:
		list = &m.cats.Unproductive
	default:
		return false, nil
	}
	i := indexOf(*list, pattern)
	if i < 0 {
		return false, nil
	}
	*list = append((*list)[:i], (*list)[i+1:]...)
	return true, nil
}

func (m *Memory) ReplaceCategories(_ context.Context, cats domain.UserCategories) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.cats = copyCats(cats)
	return nil
}

func (m *Memory) SeedCategories(_ context.Context, cats domain.UserCategories) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.seeded {
		return false, nil
	}
	m.seeded = true
	m.cats = copyCats(cats)
	return true, nil
}

func (m *Memory) GetSettings(_ context.Context) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return domain.Settings{}, m.Err
	}
	if m.settings == nil {
		return domain.DefaultSettings(), nil
	}
	return *m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.settings = &s
	return nil
}

func (m *Memory) ClearTracking(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.days = make(map[string]domain.DaySnapshot)
	m.summaries = make(map[string]domain.DailySummary)
	return nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("store closed")
	}
	return m.Err
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func copySnap(in domain.DaySnapshot) domain.DaySnapshot {
	out := make(domain.DaySnapshot, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyCats(in domain.UserCategories) domain.UserCategories {
	return domain.UserCategories{
		Productive:   append([]string{}, in.Productive...),
		Unproductive: append([]string{}, in.Unproductive...),
	}
}
