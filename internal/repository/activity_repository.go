package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/geolink/internal/models"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]models.Activity, error)
}

type activityRepository struct {
	db *PostgresDB
}

func NewActivityRepository(db *PostgresDB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (user_id, event_type, message, related_link_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		activity.UserID,
		activity.EventType,
		activity.Message,
		activity.RelatedLinkID,
	).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

func (r *activityRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	query := `
		SELECT id, user_id, event_type, message, related_link_id, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.EventType, &a.Message, &a.RelatedLinkID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}
