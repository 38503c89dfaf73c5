package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/SergeiKhy/geolink/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentageChange(t *testing.T) {
	tests := []struct {
		current, previous int64
		want              float64
	}{
		{5, 0, 100},
		{0, 0, 0},
		{10, 20, -50},
		{20, 10, 100},
		{15, 10, 50},
		{0, 4, -100},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, service.PercentageChange(tt.current, tt.previous), 1e-9,
			"PercentageChange(%d, %d)", tt.current, tt.previous)
	}
}

func TestAnalytics_EmptyDashboard(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	svc := service.NewAnalyticsService(stats, time.UTC)

	result, err := svc.Stats(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, result.Overview.AvgClicksPerLink)
	assert.Zero(t, result.Overview.TotalClicks.Change)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null", "empty collections render as []")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["topLinks"])
}

func TestAnalytics_Stats(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, loc)

	stats := mocks.NewMockStatsRepository()
	stats.Counts = map[string]int64{
		mocks.CountKey("clicks", mocks.WindowCurrent):  30,
		mocks.CountKey("clicks", mocks.WindowPrevious): 20,
		mocks.CountKey("clicks", mocks.WindowAllTime):  90,
		mocks.CountKey("unique", mocks.WindowCurrent):  12,
		mocks.CountKey("unique", mocks.WindowPrevious): 0,
		mocks.CountKey("links", mocks.WindowCurrent):   2,
		mocks.CountKey("links", mocks.WindowPrevious):  4,
		mocks.CountKey("links", mocks.WindowAllTime):   4,
	}
	stats.Hourly = []models.HourlyBucket{{Hour: 9, Clicks: 3}, {Hour: 14, Clicks: 1}}
	stats.Daily = []models.DailyClicks{{Date: "2026-03-09", Clicks: 4, Unique: 2}}
	stats.Devices = []models.DeviceCount{{Name: "mobile", Value: 3}, {Name: "Other", Value: 1}}
	stats.Geo = []models.GeoBucket{{Country: "United States", Clicks: 2}, {Country: "Others", Clicks: 1}}
	stats.Top = []models.TopLink{{ID: 1, ShortCode: "a"}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}, {ID: 6}}

	svc := service.NewAnalyticsService(stats, loc, service.WithClock(func() time.Time { return now }))

	result, err := svc.Stats(context.Background(), 42)
	require.NoError(t, err)

	o := result.Overview
	assert.EqualValues(t, 90, o.TotalClicks.Value)
	assert.InDelta(t, 50, o.TotalClicks.Change, 1e-9)
	assert.EqualValues(t, 12, o.UniqueClicks.Value)
	assert.InDelta(t, 100, o.UniqueClicks.Change, 1e-9)
	assert.EqualValues(t, 4, o.TotalLinks.Value)
	assert.InDelta(t, -50, o.TotalLinks.Change, 1e-9)
	assert.InDelta(t, 22.5, o.AvgClicksPerLink, 1e-9)

	assert.Equal(t, []models.HourlyClicks{{Time: "09:00", Clicks: 3}, {Time: "14:00", Clicks: 1}}, result.Trends.TodayClickTrend)
	assert.Equal(t, stats.Daily, result.Trends.SevenDayTrend)
	assert.Equal(t, stats.Devices, result.Charts.DeviceBreakdown)
	assert.Equal(t, []models.GeoShare{
		{Country: "United States", Clicks: 2, Percentage: 67},
		{Country: "Others", Clicks: 1, Percentage: 33},
	}, result.Charts.GeoDistribution)
	assert.Len(t, result.TopLinks, 5)

	assert.True(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc).Equal(stats.HourlySince), "today starts at local midnight")
	assert.Equal(t, "America/New_York", stats.HourlyTZ)
	assert.Equal(t, []int64{42}, stats.Owners(), "every query is scoped to the caller")
}

func TestAnalytics_StatsError(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	stats.Err = mocks.ErrInjected

	_, err := service.NewAnalyticsService(stats, time.UTC).Stats(context.Background(), 1)
	assert.ErrorIs(t, err, mocks.ErrInjected)
}

func TestAnalytics_GeoStats(t *testing.T) {
	stats := mocks.NewMockStatsRepository()
	svc := service.NewAnalyticsService(stats, time.UTC)

	empty, err := svc.GeoStats(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, empty.CountriesTargeted)
	assert.Empty(t, empty.CountriesTargeted)

	stats.GeoHits = 7
	stats.Summary = &models.GeoRuleSummary{TotalGeoRules: 3, CountriesTargeted: []string{"CA", "US"}}

	got, err := svc.GeoStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &models.GeoStats{TotalGeoClicks: 7, TotalGeoRules: 3, CountriesTargeted: []string{"CA", "US"}}, got)
}
