package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
)

// MockStatsRepository returns canned aggregates and records the owners it was queried for.
type MockStatsRepository struct {
	mu     sync.Mutex
	owners map[int64]int

	// Counts is keyed by query name and window, see CountKey.
	Counts  map[string]int64
	Hourly  []models.HourlyBucket
	Daily   []models.DailyClicks
	Devices []models.DeviceCount
	Geo     []models.GeoBucket
	Top     []models.TopLink
	Summary *models.GeoRuleSummary
	GeoHits int64
	Err     error

	HourlySince time.Time
	HourlyTZ    string
}

func NewMockStatsRepository() *MockStatsRepository {
	return &MockStatsRepository{owners: map[int64]int{}, Counts: map[string]int64{}}
}

// Window names used by CountKey.
const (
	WindowCurrent  = "current"
	WindowPrevious = "previous"
	WindowAllTime  = "all"
)

// CountKey builds the Counts key for a query ("clicks", "unique", "links") and window name.
func CountKey(query, window string) string {
	return query + ":" + window
}

func windowName(w models.Window) string {
	switch {
	case w.From.IsZero() && w.To.IsZero():
		return WindowAllTime
	case w.To.IsZero():
		return WindowCurrent
	default:
		return WindowPrevious
	}
}

func (m *MockStatsRepository) seen(ownerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[ownerID]++
}

// Owners returns the distinct owner ids queried.
func (m *MockStatsRepository) Owners() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.owners))
	for id := range m.owners {
		out = append(out, id)
	}
	return out
}

func (m *MockStatsRepository) count(query string, ownerID int64, w models.Window) (int64, error) {
	m.seen(ownerID)
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Counts[CountKey(query, windowName(w))], nil
}

func (m *MockStatsRepository) CountClicks(ctx context.Context, ownerID int64, w models.Window) (int64, error) {
	return m.count("clicks", ownerID, w)
}

func (m *MockStatsRepository) CountUniqueVisitors(ctx context.Context, ownerID int64, w models.Window) (int64, error) {
	return m.count("unique", ownerID, w)
}

func (m *MockStatsRepository) CountLinks(ctx context.Context, ownerID int64, w models.Window) (int64, error) {
	return m.count("links", ownerID, w)
}

func (m *MockStatsRepository) HourlyClicks(ctx context.Context, ownerID int64, since time.Time, tz string) ([]models.HourlyBucket, error) {
	m.seen(ownerID)
	m.mu.Lock()
	m.HourlySince, m.HourlyTZ = since, tz
	m.mu.Unlock()
	return m.Hourly, m.Err
}

func (m *MockStatsRepository) DailyClicks(ctx context.Context, ownerID int64, since time.Time, tz string) ([]models.DailyClicks, error) {
	m.seen(ownerID)
	return m.Daily, m.Err
}

func (m *MockStatsRepository) DeviceBreakdown(ctx context.Context, ownerID int64) ([]models.DeviceCount, error) {
	m.seen(ownerID)
	return m.Devices, m.Err
}

func (m *MockStatsRepository) GeoDistribution(ctx context.Context, ownerID int64) ([]models.GeoBucket, error) {
	m.seen(ownerID)
	return m.Geo, m.Err
}

func (m *MockStatsRepository) TopLinks(ctx context.Context, ownerID int64, limit int) ([]models.TopLink, error) {
	m.seen(ownerID)
	if len(m.Top) > limit {
		return m.Top[:limit], m.Err
	}
	return m.Top, m.Err
}

func (m *MockStatsRepository) CountGeoRedirects(ctx context.Context, ownerID int64) (int64, error) {
	m.seen(ownerID)
	return m.GeoHits, m.Err
}

func (m *MockStatsRepository) GeoRuleSummary(ctx context.Context, ownerID int64) (*models.GeoRuleSummary, error) {
	m.seen(ownerID)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Summary == nil {
		return &models.GeoRuleSummary{}, nil
	}
	return m.Summary, nil
}
