package geo

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/geolink/internal/models"
	geoip2 "github.com/oschwald/geoip2-golang"
)

// MaxMindResolver reads a local GeoLite2/GeoIP2 City database.
type MaxMindResolver struct {
	db *geoip2.Reader
}

func NewMaxMindResolver(dbPath string) (*MaxMindResolver, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &MaxMindResolver{db: db}, nil
}

func (r *MaxMindResolver) Close() error {
	return r.db.Close()
}

func (r *MaxMindResolver) Lookup(ctx context.Context, ip string) (*models.GeoData, error) {
	parsed, err := parseIP(ip)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := r.db.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}

	data := &models.GeoData{
		CountryCode: record.Country.IsoCode,
		Country:     record.Country.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		data.Region = record.Subdivisions[0].Names["en"]
	}
	return data, nil
}
