package geo

import (
	"context"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"go.uber.org/zap"
)

// Cache stores lookup results by IP.
type Cache interface {
	Get(ctx context.Context, ip string) (*models.GeoData, error)
	Set(ctx context.Context, ip string, data *models.GeoData, ttl time.Duration) error
}

// CachedResolver consults cache before delegating. Cache failures fall through to the inner resolver.
type CachedResolver struct {
	inner  Resolver
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedResolver(inner Resolver, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedResolver) Lookup(ctx context.Context, ip string) (*models.GeoData, error) {
	if _, err := parseIP(ip); err != nil {
		return nil, err
	}

	if data, err := r.cache.Get(ctx, ip); err == nil {
		return data, nil
	}

	data, err := r.inner.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, ip, data, r.ttl); err != nil {
		r.logger.Debug("failed to cache geo data", zap.String("ip", ip), zap.Error(err))
	}
	return data, nil
}
