package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	ExistsByShortCode(ctx context.Context, code string) (bool, error)
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	GetByID(ctx context.Context, id int64) (*models.Link, error)
	// GetByIDForUpdate locks the link row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Link, error)
	// ListByCreator returns the creator's links newest first. A nil linkType lists all types.
	ListByCreator(ctx context.Context, creatorID int64, linkType *models.LinkType) ([]models.Link, error)
	Delete(ctx context.Context, id int64) error
	AddGeoRule(ctx context.Context, rule *models.GeoRule) error
	DeleteGeoRule(ctx context.Context, linkID int64, ruleID uuid.UUID) error
	IncrementClicks(ctx context.Context, linkID int64) error
	IncrementRuleClicks(ctx context.Context, ruleID uuid.UUID) error
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, creator_id, link_type, short_code, default_url, title, total_clicks, created_at, updated_at`

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (creator_id, link_type, short_code, default_url, title)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, total_clicks, created_at, updated_at
	`

	err := r.db.conn(ctx).QueryRow(
		ctx,
		query,
		link.CreatorID,
		link.LinkType,
		link.ShortCode,
		link.DefaultURL,
		link.Title,
	).Scan(&link.ID, &link.TotalClicks, &link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	if link.GeoRules == nil {
		link.GeoRules = []models.GeoRule{}
	}
	return nil
}

func (r *linkRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return exists, nil
}

func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	return r.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE short_code = $1`, code)
}

func (r *linkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	return r.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id)
}

func (r *linkRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Link, error) {
	return r.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1 FOR UPDATE`, id)
}

func (r *linkRepository) getOne(ctx context.Context, query string, arg any) (*models.Link, error) {
	q := r.db.conn(ctx)

	link, err := scanLink(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	rules, err := r.rulesFor(ctx, q, []int64{link.ID})
	if err != nil {
		return nil, err
	}
	link.GeoRules = rules[link.ID]
	if link.GeoRules == nil {
		link.GeoRules = []models.GeoRule{}
	}

	return link, nil
}

func (r *linkRepository) ListByCreator(ctx context.Context, creatorID int64, linkType *models.LinkType) ([]models.Link, error) {
	q := r.db.conn(ctx)

	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE creator_id = $1 AND ($2::text IS NULL OR link_type = $2)
		ORDER BY created_at DESC, id DESC
	`

	var typeArg *string
	if linkType != nil {
		typeArg = lo.ToPtr(string(*linkType))
	}

	rows, err := q.Query(ctx, query, creatorID, typeArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	if len(links) == 0 {
		return links, nil
	}

	rules, err := r.rulesFor(ctx, q, lo.Map(links, func(l models.Link, _ int) int64 { return l.ID }))
	if err != nil {
		return nil, err
	}
	for i := range links {
		links[i].GeoRules = rules[links[i].ID]
		if links[i].GeoRules == nil {
			links[i].GeoRules = []models.GeoRule{}
		}
	}

	return links, nil
}

func (r *linkRepository) rulesFor(ctx context.Context, q querier, linkIDs []int64) (map[int64][]models.GeoRule, error) {
	query := `
		SELECT id, link_id, country, country_code, destination_url, clicks, created_at
		FROM geo_rules
		WHERE link_id = ANY($1)
		ORDER BY link_id, position
	`

	rows, err := q.Query(ctx, query, linkIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load geo rules: %w", err)
	}
	defer rows.Close()

	var rules []models.GeoRule
	for rows.Next() {
		var rule models.GeoRule
		if err := rows.Scan(
			&rule.ID,
			&rule.LinkID,
			&rule.Country,
			&rule.CountryCode,
			&rule.DestinationURL,
			&rule.Clicks,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan geo rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating geo rules: %w", err)
	}

	return lo.GroupBy(rules, func(rule models.GeoRule) int64 { return rule.LinkID }), nil
}

func (r *linkRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) AddGeoRule(ctx context.Context, rule *models.GeoRule) error {
	query := `
		INSERT INTO geo_rules (id, link_id, country, country_code, destination_url, position)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM geo_rules WHERE link_id = $2))
		RETURNING clicks, created_at
	`

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}

	err := r.db.conn(ctx).QueryRow(
		ctx,
		query,
		rule.ID,
		rule.LinkID,
		rule.Country,
		rule.CountryCode,
		rule.DestinationURL,
	).Scan(&rule.Clicks, &rule.CreatedAt)

	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return ErrCountryExists
		}
		return fmt.Errorf("failed to add geo rule: %w", err)
	}

	_, err = r.db.conn(ctx).Exec(ctx, `UPDATE links SET updated_at = NOW() WHERE id = $1`, rule.LinkID)
	if err != nil {
		return fmt.Errorf("failed to touch link: %w", err)
	}

	return nil
}

func (r *linkRepository) DeleteGeoRule(ctx context.Context, linkID int64, ruleID uuid.UUID) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM geo_rules WHERE id = $1 AND link_id = $2`, ruleID, linkID)
	if err != nil {
		return fmt.Errorf("failed to delete geo rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRuleNotFound
	}

	_, err = r.db.conn(ctx).Exec(ctx, `UPDATE links SET updated_at = NOW() WHERE id = $1`, linkID)
	if err != nil {
		return fmt.Errorf("failed to touch link: %w", err)
	}

	return nil
}

func (r *linkRepository) IncrementClicks(ctx context.Context, linkID int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `UPDATE links SET total_clicks = total_clicks + 1 WHERE id = $1`, linkID)
	if err != nil {
		return fmt.Errorf("failed to increment link clicks: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) IncrementRuleClicks(ctx context.Context, ruleID uuid.UUID) error {
	result, err := r.db.conn(ctx).Exec(ctx, `UPDATE geo_rules SET clicks = clicks + 1 WHERE id = $1`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to increment rule clicks: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	err := row.Scan(
		&link.ID,
		&link.CreatorID,
		&link.LinkType,
		&link.ShortCode,
		&link.DefaultURL,
		&link.Title,
		&link.TotalClicks,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}
