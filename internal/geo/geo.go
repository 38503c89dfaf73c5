// Package geo resolves client IP addresses to country and region.
package geo

import (
	"context"
	"errors"
	"net"

	"github.com/SergeiKhy/geolink/internal/models"
)

var ErrInvalidIP = errors.New("invalid ip address")

// Resolver looks up geo data for an IP. Implementations must honor ctx cancellation.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (*models.GeoData, error)
}

func parseIP(ip string) (net.IP, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, ErrInvalidIP
	}
	return parsed, nil
}

// IsLocal reports whether ip is loopback, private or unspecified.
func IsLocal(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast()
}

// Noop resolves every valid address to unknown geo data.
type Noop struct{}

func (Noop) Lookup(_ context.Context, ip string) (*models.GeoData, error) {
	if _, err := parseIP(ip); err != nil {
		return nil, err
	}
	return &models.GeoData{}, nil
}
