package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"go.uber.org/zap"
)

const (
	recentActivityLimit  = 10
	activityWriteTimeout = 3 * time.Second
)

// ActivityService writes and reads the per-user audit feed.
type ActivityService interface {
	// Record is best-effort: failures are logged, never returned.
	Record(ctx context.Context, userID int64, eventType models.ActivityType, message string, linkID *int64)
	Recent(ctx context.Context, userID int64) ([]models.Activity, error)
}

type activityService struct {
	repo   repository.ActivityRepository
	logger *zap.Logger
}

func NewActivityService(repo repository.ActivityRepository, logger *zap.Logger) ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &activityService{repo: repo, logger: logger}
}

func (s *activityService) Record(ctx context.Context, userID int64, eventType models.ActivityType, message string, linkID *int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityWriteTimeout)
	defer cancel()

	activity := &models.Activity{
		UserID:        userID,
		EventType:     eventType,
		Message:       message,
		RelatedLinkID: linkID,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		s.logger.Error("failed to record activity",
			zap.Int64("user_id", userID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}

func (s *activityService) Recent(ctx context.Context, userID int64) ([]models.Activity, error) {
	activities, err := s.repo.ListRecent(ctx, userID, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}
