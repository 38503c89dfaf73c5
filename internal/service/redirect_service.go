package service

import (
	"context"
	"time"

	"github.com/SergeiKhy/geolink/internal/geo"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Redirect is the outcome of resolving a short code.
type Redirect struct {
	URL   string
	Event *models.ClickEvent
}

// RedirectService picks the destination for a visit. It performs no writes.
type RedirectService interface {
	Resolve(ctx context.Context, code, ip, userAgent string) (*Redirect, error)
}

type redirectService struct {
	links    LinkService
	resolver geo.Resolver
	devIP    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewRedirectService creates the resolver. devIP, when set, replaces local client addresses for geo lookups.
func NewRedirectService(links LinkService, resolver geo.Resolver, devIP string, logger *zap.Logger) RedirectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redirectService{
		links:    links,
		resolver: resolver,
		devIP:    devIP,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *redirectService) Resolve(ctx context.Context, code, ip, userAgent string) (*Redirect, error) {
	link, err := s.links.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}

	clientIP, geoData := s.lookup(ctx, ip)

	destination := link.DefaultURL
	var matched *models.GeoRule
	if link.LinkType == models.LinkTypeGeo && len(link.GeoRules) > 0 && geoData.Known() {
		if rule, ok := link.RuleFor(geoData.CountryCode); ok {
			matched = rule
			destination = rule.DestinationURL
		}
	}

	event := &models.ClickEvent{
		EventID:   uuid.New(),
		LinkID:    link.ID,
		OwnerID:   link.CreatorID,
		ShortCode: link.ShortCode,
		IPAddress: clientIP,
		UserAgent: userAgent,
		Geo:       geoData,
		ClickedAt: s.now(),
	}
	if matched != nil {
		id := matched.ID
		event.MatchedRuleID = &id
	}

	return &Redirect{URL: withScheme(destination), Event: event}, nil
}

// lookup returns the address that was located along with its location, so the
// stored click and its geo columns always describe the same address.
// It never fails: geo errors degrade to unknown location.
func (s *redirectService) lookup(ctx context.Context, ip string) (string, models.GeoData) {
	target := ip
	if s.devIP != "" && geo.IsLocal(ip) {
		target = s.devIP
	}

	data, err := s.resolver.Lookup(ctx, target)
	if err != nil {
		s.logger.Warn("geo lookup failed, continuing without location",
			zap.String("ip", target),
			zap.Error(err),
		)
		return target, models.GeoData{}
	}
	return target, *data
}
