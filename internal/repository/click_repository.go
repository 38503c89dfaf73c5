package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/jackc/pgx/v5"
)

// ClickRepository is the append-only click log.
type ClickRepository interface {
	// RecordClick stores click once per EventID. Recording an EventID that is already
	// stored succeeds without writing and leaves click.ID zero.
	RecordClick(ctx context.Context, click *models.Click) error
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (
			event_id, link_id, owner_id, clicked_at, ip_address, was_geo_redirect, matched_rule_id,
			country_code, country, region, browser, os, device_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		click.EventID,
		click.LinkID,
		click.OwnerID,
		click.ClickedAt,
		click.IPAddress,
		click.WasGeoRedirect,
		click.MatchedRuleID,
		nullableString(click.Geo.CountryCode),
		nullableString(click.Geo.Country),
		nullableString(click.Geo.Region),
		nullableString(click.Device.Browser),
		nullableString(click.Device.OS),
		nullableString(click.Device.Type),
	).Scan(&click.ID)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}
