package models

import "time"

// Window is a half-open time range [From, To). A zero bound is unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

type Metric struct {
	Value    int64   `json:"value"`
	Current  int64   `json:"current"`
	Previous int64   `json:"previous"`
	Change   float64 `json:"change"`
}

type Overview struct {
	TotalClicks      Metric  `json:"totalClicks"`
	TotalLinks       Metric  `json:"totalLinks"`
	UniqueClicks     Metric  `json:"uniqueClicks"`
	AvgClicksPerLink float64 `json:"avgClicksPerLink"`
}

type HourlyBucket struct {
	Hour   int
	Clicks int64
}

type HourlyClicks struct {
	Time   string `json:"time"`
	Clicks int64  `json:"clicks"`
}

type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
	Unique int64  `json:"unique"`
}

type Trends struct {
	TodayClickTrend []HourlyClicks `json:"todayClickTrend"`
	SevenDayTrend   []DailyClicks  `json:"sevenDayTrend"`
}

type DeviceCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type GeoBucket struct {
	Country string `json:"country"`
	Clicks  int64  `json:"clicks"`
}

type GeoShare struct {
	Country    string `json:"country"`
	Clicks     int64  `json:"clicks"`
	Percentage int    `json:"percentage"`
}

type Charts struct {
	DeviceBreakdown []DeviceCount `json:"deviceBreakdown"`
	GeoDistribution []GeoShare    `json:"geoDistribution"`
}

type TopLink struct {
	ID             int64  `json:"id"`
	ShortCode      string `json:"shortCode"`
	Title          string `json:"title"`
	Clicks         int64  `json:"clicks"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

type DashboardStats struct {
	Overview Overview  `json:"overview"`
	Trends   Trends    `json:"trends"`
	Charts   Charts    `json:"charts"`
	TopLinks []TopLink `json:"topLinks"`
}

type GeoRuleSummary struct {
	TotalGeoRules     int64
	CountriesTargeted []string
}

type GeoStats struct {
	TotalGeoClicks    int64    `json:"totalGeoClicks"`
	TotalGeoRules     int64    `json:"totalGeoRules"`
	CountriesTargeted []string `json:"countriesTargeted"`
}
