package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/jackc/pgx/v5"
)

// StatsRepository runs the per-owner aggregation queries behind the dashboard.
// Every query is scoped to one owner. Window bounds left zero are open.
type StatsRepository interface {
	CountClicks(ctx context.Context, ownerID int64, w models.Window) (int64, error)
	CountUniqueVisitors(ctx context.Context, ownerID int64, w models.Window) (int64, error)
	CountLinks(ctx context.Context, ownerID int64, w models.Window) (int64, error)
	// HourlyClicks buckets clicks since the given instant by hour of day in tz.
	HourlyClicks(ctx context.Context, ownerID int64, since time.Time, tz string) ([]models.HourlyBucket, error)
	DailyClicks(ctx context.Context, ownerID int64, since time.Time, tz string) ([]models.DailyClicks, error)
	DeviceBreakdown(ctx context.Context, ownerID int64) ([]models.DeviceCount, error)
	GeoDistribution(ctx context.Context, ownerID int64) ([]models.GeoBucket, error)
	TopLinks(ctx context.Context, ownerID int64, limit int) ([]models.TopLink, error)
	CountGeoRedirects(ctx context.Context, ownerID int64) (int64, error)
	GeoRuleSummary(ctx context.Context, ownerID int64) (*models.GeoRuleSummary, error)
}

type statsRepository struct {
	db *PostgresDB
}

func NewStatsRepository(db *PostgresDB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountClicks(ctx context.Context, ownerID int64, w models.Window) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM clicks
		WHERE owner_id = $1
			AND ($2::timestamptz IS NULL OR clicked_at >= $2)
			AND ($3::timestamptz IS NULL OR clicked_at < $3)
	`
	return r.count(ctx, "clicks", query, ownerID, nullableTime(w.From), nullableTime(w.To))
}

func (r *statsRepository) CountUniqueVisitors(ctx context.Context, ownerID int64, w models.Window) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT ip_address)
		FROM clicks
		WHERE owner_id = $1
			AND ($2::timestamptz IS NULL OR clicked_at >= $2)
			AND ($3::timestamptz IS NULL OR clicked_at < $3)
	`
	return r.count(ctx, "unique visitors", query, ownerID, nullableTime(w.From), nullableTime(w.To))
}

func (r *statsRepository) CountLinks(ctx context.Context, ownerID int64, w models.Window) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM links
		WHERE creator_id = $1
			AND ($2::timestamptz IS NULL OR created_at >= $2)
			AND ($3::timestamptz IS NULL OR created_at < $3)
	`
	return r.count(ctx, "links", query, ownerID, nullableTime(w.From), nullableTime(w.To))
}

func (r *statsRepository) CountGeoRedirects(ctx context.Context, ownerID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM clicks WHERE owner_id = $1 AND was_geo_redirect`
	return r.count(ctx, "geo redirects", query, ownerID)
}

func (r *statsRepository) count(ctx context.Context, what, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.conn(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", what, err)
	}
	return n, nil
}

func (r *statsRepository) HourlyClicks(ctx context.Context, ownerID int64, since time.Time, tz string) ([]models.HourlyBucket, error) {
	query := `
		SELECT EXTRACT(HOUR FROM clicked_at AT TIME ZONE $3)::int AS hour, COUNT(*)
		FROM clicks
		WHERE owner_id = $1 AND clicked_at >= $2
		GROUP BY hour
		ORDER BY hour
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID, since, tz)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly clicks: %w", err)
	}

	buckets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.HourlyBucket, error) {
		var b models.HourlyBucket
		err := row.Scan(&b.Hour, &b.Clicks)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan hourly clicks: %w", err)
	}
	return buckets, nil
}

func (r *statsRepository) DailyClicks(ctx context.Context, ownerID int64, since time.Time, tz string) ([]models.DailyClicks, error) {
	query := `
		SELECT
			to_char(clicked_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day,
			COUNT(*),
			COUNT(DISTINCT ip_address)
		FROM clicks
		WHERE owner_id = $1 AND clicked_at >= $2
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID, since, tz)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily clicks: %w", err)
	}

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DailyClicks, error) {
		var d models.DailyClicks
		err := row.Scan(&d.Date, &d.Clicks, &d.Unique)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily clicks: %w", err)
	}
	return days, nil
}

func (r *statsRepository) DeviceBreakdown(ctx context.Context, ownerID int64) ([]models.DeviceCount, error) {
	query := `
		SELECT COALESCE(NULLIF(device_type, ''), 'Other') AS name, COUNT(*)
		FROM clicks
		WHERE owner_id = $1
		GROUP BY name
		ORDER BY COUNT(*) DESC, name
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device breakdown: %w", err)
	}

	devices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DeviceCount, error) {
		var d models.DeviceCount
		err := row.Scan(&d.Name, &d.Value)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan device breakdown: %w", err)
	}
	return devices, nil
}

// GeoDistribution counts clicks on existing geo links: rule-matched clicks by
// country, everything else in one "Others" bucket.
func (r *statsRepository) GeoDistribution(ctx context.Context, ownerID int64) ([]models.GeoBucket, error) {
	query := `
		SELECT
			CASE WHEN c.was_geo_redirect THEN COALESCE(NULLIF(c.country, ''), 'Unknown') ELSE 'Others' END AS bucket,
			COUNT(*)
		FROM clicks c
		JOIN links l ON l.id = c.link_id
		WHERE c.owner_id = $1 AND l.link_type = 'geo'
		GROUP BY bucket
		ORDER BY COUNT(*) DESC, bucket
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get geo distribution: %w", err)
	}

	buckets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GeoBucket, error) {
		var b models.GeoBucket
		err := row.Scan(&b.Country, &b.Clicks)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan geo distribution: %w", err)
	}
	return buckets, nil
}

func (r *statsRepository) TopLinks(ctx context.Context, ownerID int64, limit int) ([]models.TopLink, error) {
	query := `
		SELECT
			l.id, l.short_code, l.title, l.total_clicks,
			(SELECT COUNT(DISTINCT c.ip_address) FROM clicks c WHERE c.link_id = l.id)
		FROM links l
		WHERE l.creator_id = $1
		ORDER BY l.total_clicks DESC, l.id
		LIMIT $2
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top links: %w", err)
	}

	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TopLink, error) {
		var t models.TopLink
		err := row.Scan(&t.ID, &t.ShortCode, &t.Title, &t.Clicks, &t.UniqueVisitors)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan top links: %w", err)
	}
	return links, nil
}

func (r *statsRepository) GeoRuleSummary(ctx context.Context, ownerID int64) (*models.GeoRuleSummary, error) {
	query := `
		SELECT
			COUNT(g.id),
			COALESCE(array_agg(DISTINCT g.country_code ORDER BY g.country_code) FILTER (WHERE g.id IS NOT NULL), '{}')
		FROM links l
		LEFT JOIN geo_rules g ON g.link_id = l.id
		WHERE l.creator_id = $1 AND l.link_type = 'geo'
	`

	summary := &models.GeoRuleSummary{}
	err := r.db.conn(ctx).QueryRow(ctx, query, ownerID).Scan(&summary.TotalGeoRules, &summary.CountriesTargeted)
	if err != nil {
		return nil, fmt.Errorf("failed to get geo rule summary: %w", err)
	}
	return summary, nil
}
