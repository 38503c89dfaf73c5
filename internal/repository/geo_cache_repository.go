package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/redis/go-redis/v9"
)

// GeoCacheRepository stores IP lookup results.
type GeoCacheRepository interface {
	Get(ctx context.Context, ip string) (*models.GeoData, error)
	Set(ctx context.Context, ip string, data *models.GeoData, ttl time.Duration) error
}

type geoCacheRepository struct {
	redis *RedisDB
}

func NewGeoCacheRepository(redis *RedisDB) GeoCacheRepository {
	return &geoCacheRepository{redis: redis}
}

func (r *geoCacheRepository) Get(ctx context.Context, ip string) (*models.GeoData, error) {
	raw, err := r.redis.Client.Get(ctx, "geo:"+ip).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cached geo data: %w", err)
	}

	var data models.GeoData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geo data: %w", err)
	}
	return &data, nil
}

func (r *geoCacheRepository) Set(ctx context.Context, ip string, data *models.GeoData, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal geo data: %w", err)
	}
	return r.redis.Client.Set(ctx, "geo:"+ip, raw, ttl).Err()
}
