package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/redis/go-redis/v9"
)

const deadLetterKey = "clicks:deadletter"

// DeadLetterRepository is a FIFO of click side effects that exhausted their retries.
type DeadLetterRepository interface {
	Push(ctx context.Context, letter *models.DeadLetter) error
	Pop(ctx context.Context) (*models.DeadLetter, error)
	Len(ctx context.Context) (int64, error)
}

type deadLetterRepository struct {
	redis *RedisDB
}

func NewDeadLetterRepository(redis *RedisDB) DeadLetterRepository {
	return &deadLetterRepository{redis: redis}
}

func (r *deadLetterRepository) Push(ctx context.Context, letter *models.DeadLetter) error {
	data, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := r.redis.Client.RPush(ctx, deadLetterKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push dead letter: %w", err)
	}
	return nil
}

// Pop returns nil, nil when the list is empty.
func (r *deadLetterRepository) Pop(ctx context.Context) (*models.DeadLetter, error) {
	data, err := r.redis.Client.LPop(ctx, deadLetterKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop dead letter: %w", err)
	}

	var letter models.DeadLetter
	if err := json.Unmarshal(data, &letter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}
	return &letter, nil
}

func (r *deadLetterRepository) Len(ctx context.Context) (int64, error) {
	return r.redis.Client.LLen(ctx, deadLetterKey).Result()
}
