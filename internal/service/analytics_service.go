package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const topLinksLimit = 5

// AnalyticsService builds the dashboard for one user.
type AnalyticsService interface {
	Stats(ctx context.Context, userID int64) (*models.DashboardStats, error)
	GeoStats(ctx context.Context, userID int64) (*models.GeoStats, error)
}

type AnalyticsOption func(*analyticsService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) AnalyticsOption {
	return func(s *analyticsService) { s.now = now }
}

type analyticsService struct {
	stats repository.StatsRepository
	loc   *time.Location
	now   func() time.Time
}

// NewAnalyticsService creates the aggregator. Day boundaries are computed in loc.
func NewAnalyticsService(stats repository.StatsRepository, loc *time.Location, opts ...AnalyticsOption) AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	s := &analyticsService{stats: stats, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type windows struct {
	current    models.Window
	previous   models.Window
	todayStart time.Time
	weekAgo    time.Time
}

func (s *analyticsService) windows() windows {
	now := s.now().In(s.loc)
	thirtyDaysAgo := now.AddDate(0, 0, -30)
	sixtyDaysAgo := now.AddDate(0, 0, -60)

	return windows{
		current:    models.Window{From: thirtyDaysAgo},
		previous:   models.Window{From: sixtyDaysAgo, To: thirtyDaysAgo},
		todayStart: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc),
		weekAgo:    now.AddDate(0, 0, -7),
	}
}

// Stats runs every dashboard query concurrently and composes the result.
func (s *analyticsService) Stats(ctx context.Context, userID int64) (*models.DashboardStats, error) {
	w := s.windows()
	tz := s.loc.String()

	var (
		clicksCurrent, clicksPrevious, clicksAllTime int64
		uniqueCurrent, uniquePrevious                int64
		linksCurrent, linksPrevious, linksAllTime    int64

		hourly  []models.HourlyBucket
		daily   []models.DailyClicks
		devices []models.DeviceCount
		geo     []models.GeoBucket
		top     []models.TopLink
	)

	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, fn func(context.Context, int64, models.Window) (int64, error), win models.Window) {
		g.Go(func() error {
			n, err := fn(ctx, userID, win)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&clicksCurrent, s.stats.CountClicks, w.current)
	count(&clicksPrevious, s.stats.CountClicks, w.previous)
	count(&clicksAllTime, s.stats.CountClicks, models.Window{})
	count(&uniqueCurrent, s.stats.CountUniqueVisitors, w.current)
	count(&uniquePrevious, s.stats.CountUniqueVisitors, w.previous)
	count(&linksCurrent, s.stats.CountLinks, w.current)
	count(&linksPrevious, s.stats.CountLinks, w.previous)
	count(&linksAllTime, s.stats.CountLinks, models.Window{})

	g.Go(func() (err error) {
		hourly, err = s.stats.HourlyClicks(ctx, userID, w.todayStart, tz)
		return err
	})
	g.Go(func() (err error) {
		daily, err = s.stats.DailyClicks(ctx, userID, w.weekAgo, tz)
		return err
	})
	g.Go(func() (err error) {
		devices, err = s.stats.DeviceBreakdown(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		geo, err = s.stats.GeoDistribution(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.stats.TopLinks(ctx, userID, topLinksLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}

	avg := 0.0
	if linksAllTime > 0 {
		avg = float64(clicksAllTime) / float64(linksAllTime)
	}

	return &models.DashboardStats{
		Overview: models.Overview{
			TotalClicks:      metric(clicksAllTime, clicksCurrent, clicksPrevious),
			TotalLinks:       metric(linksAllTime, linksCurrent, linksPrevious),
			UniqueClicks:     metric(uniqueCurrent, uniqueCurrent, uniquePrevious),
			AvgClicksPerLink: avg,
		},
		Trends: models.Trends{
			TodayClickTrend: lo.Map(hourly, func(b models.HourlyBucket, _ int) models.HourlyClicks {
				return models.HourlyClicks{Time: fmt.Sprintf("%02d:00", b.Hour), Clicks: b.Clicks}
			}),
			SevenDayTrend: orEmpty(daily),
		},
		Charts: models.Charts{
			DeviceBreakdown: orEmpty(devices),
			GeoDistribution: geoShares(geo),
		},
		TopLinks: orEmpty(top),
	}, nil
}

// GeoStats summarises geo-redirect traffic and the rules behind it.
func (s *analyticsService) GeoStats(ctx context.Context, userID int64) (*models.GeoStats, error) {
	var (
		geoClicks int64
		summary   *models.GeoRuleSummary
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		geoClicks, err = s.stats.CountGeoRedirects(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary, err = s.stats.GeoRuleSummary(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate geo stats: %w", err)
	}

	return &models.GeoStats{
		TotalGeoClicks:    geoClicks,
		TotalGeoRules:     summary.TotalGeoRules,
		CountriesTargeted: orEmpty(summary.CountriesTargeted),
	}, nil
}

// PercentageChange is the signed change from previous to current, in percent.
// From zero it is 100 when anything happened and 0 otherwise.
func PercentageChange(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

func metric(value, current, previous int64) models.Metric {
	return models.Metric{
		Value:    value,
		Current:  current,
		Previous: previous,
		Change:   PercentageChange(current, previous),
	}
}

// geoShares attaches each bucket's rounded share of the total.
func geoShares(buckets []models.GeoBucket) []models.GeoShare {
	total := lo.SumBy(buckets, func(b models.GeoBucket) int64 { return b.Clicks })

	return lo.Map(buckets, func(b models.GeoBucket, _ int) models.GeoShare {
		share := models.GeoShare{Country: b.Country, Clicks: b.Clicks}
		if total > 0 {
			share.Percentage = int(math.Round(float64(b.Clicks) / float64(total) * 100))
		}
		return share
	})
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
