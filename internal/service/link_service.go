package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultCacheTTL = 24 * time.Hour
	codeLength      = 7
	charset         = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	maxCodeAttempts = 5
)

var (
	aliasPattern       = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

	// Aliases that would shadow top-level routes.
	reservedAliases = []string{"url", "auth", "dashboard", "user", "api", "health"}
)

// LinkService manages links and their geo rules.
type LinkService interface {
	CreateLink(ctx context.Context, userID int64, input *models.CreateLinkInput) (*models.Link, error)
	// GetLink resolves a short code through the cache, falling back to the store.
	GetLink(ctx context.Context, code string) (*models.Link, error)
	ListLinks(ctx context.Context, userID int64, linkType *models.LinkType) ([]models.Link, error)
	DeleteLink(ctx context.Context, userID, linkID int64) error
	AddGeoRule(ctx context.Context, userID, linkID int64, input *models.GeoRuleInput) (*models.Link, error)
	RemoveGeoRule(ctx context.Context, userID, linkID int64, ruleID uuid.UUID) (*models.Link, error)
	ShortURL(code string) string
}

type LinkServiceConfig struct {
	BaseURL        string
	BlockedDomains []string
	CacheTTL       time.Duration
}

type linkService struct {
	linkRepo   repository.LinkRepository
	cacheRepo  repository.CacheRepository
	tx         repository.Transactor
	activities ActivityService
	cfg        LinkServiceConfig
	logger     *zap.Logger
}

// NewLinkService creates the link service.
func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	tx repository.Transactor,
	activities ActivityService,
	cfg LinkServiceConfig,
	logger *zap.Logger,
) LinkService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		linkRepo:   linkRepo,
		cacheRepo:  cacheRepo,
		tx:         tx,
		activities: activities,
		cfg:        cfg,
		logger:     logger,
	}
}

// CreateLink validates input and stores a new link under a random or caller-chosen code.
func (s *linkService) CreateLink(ctx context.Context, userID int64, input *models.CreateLinkInput) (*models.Link, error) {
	linkType := input.LinkType
	if linkType == "" {
		linkType = models.LinkTypeNormal
	}
	if !linkType.Valid() {
		return nil, ErrInvalidLinkType
	}

	title := strings.TrimSpace(input.Title)
	if linkType == models.LinkTypeGeo && title == "" {
		return nil, ErrTitleRequired
	}

	defaultURL := strings.TrimSpace(input.DefaultURL)
	if err := s.checkDestination(defaultURL); err != nil {
		return nil, err
	}

	link := &models.Link{
		CreatorID:  userID,
		LinkType:   linkType,
		DefaultURL: defaultURL,
		Title:      title,
		GeoRules:   []models.GeoRule{},
	}

	alias := strings.TrimSpace(input.CustomAlias)
	var err error
	if alias != "" {
		err = s.createWithAlias(ctx, link, alias)
	} else {
		err = s.createWithRandomCode(ctx, link)
	}
	if err != nil {
		return nil, err
	}

	s.cache(ctx, link)

	message := fmt.Sprintf("You created a new link: %s", link.ShortCode)
	if title != "" {
		message = fmt.Sprintf("You created a new Geo-Url: %s (%s)", title, link.ShortCode)
	}
	s.activities.Record(ctx, userID, models.ActivityURLCreated, message, &link.ID)

	return link, nil
}

func (s *linkService) createWithAlias(ctx context.Context, link *models.Link, alias string) error {
	if err := validateAlias(alias); err != nil {
		return err
	}

	exists, err := s.linkRepo.ExistsByShortCode(ctx, alias)
	if err != nil {
		return err
	}
	if exists {
		return ErrAliasTaken
	}

	link.ShortCode = alias
	if err := s.linkRepo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			return ErrAliasTaken
		}
		return err
	}
	return nil
}

// createWithRandomCode retries on collisions; the UNIQUE index is the real guard.
func (s *linkService) createWithRandomCode(ctx context.Context, link *models.Link) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}

		exists, err := s.linkRepo.ExistsByShortCode(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		link.ShortCode = code
		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return err
		}
		s.logger.Debug("short code collision, retrying", zap.String("code", code), zap.Int("attempt", attempt))
	}
	return fmt.Errorf("failed to allocate a unique short code after %d attempts", maxCodeAttempts)
}

// GetLink returns the link for a short code, cache first.
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.cacheRepo.Get(ctx, code)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("link cache read failed", zap.String("code", code), zap.Error(err))
	}

	link, err = s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	s.cache(ctx, link)
	return link, nil
}

// ListLinks returns the user's links, optionally filtered by type.
func (s *linkService) ListLinks(ctx context.Context, userID int64, linkType *models.LinkType) ([]models.Link, error) {
	if linkType != nil && !linkType.Valid() {
		return nil, ErrInvalidLinkType
	}
	links, err := s.linkRepo.ListByCreator(ctx, userID, linkType)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []models.Link{}
	}
	return links, nil
}

// DeleteLink removes a link owned by userID. Click history is kept.
func (s *linkService) DeleteLink(ctx context.Context, userID, linkID int64) error {
	var deleted *models.Link
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		link, err := s.lockOwned(ctx, userID, linkID)
		if err != nil {
			return err
		}
		if err := s.linkRepo.Delete(ctx, link.ID); err != nil {
			if errors.Is(err, repository.ErrLinkNotFound) {
				return ErrLinkNotFound
			}
			return err
		}
		deleted = link
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, deleted.ShortCode)
	s.activities.Record(ctx, userID, models.ActivityURLDeleted,
		fmt.Sprintf("You deleted link: %s", deleted.ShortCode), &deleted.ID)
	return nil
}

// AddGeoRule appends a country rule to a geo link owned by userID.
func (s *linkService) AddGeoRule(ctx context.Context, userID, linkID int64, input *models.GeoRuleInput) (*models.Link, error) {
	country := strings.TrimSpace(input.Country)
	if country == "" {
		return nil, ErrCountryRequired
	}
	code := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	if !countryCodePattern.MatchString(code) {
		return nil, ErrInvalidCountryCode
	}
	destination := strings.TrimSpace(input.DestinationURL)
	if err := s.checkDestination(destination); err != nil {
		return nil, err
	}

	var updated *models.Link
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		link, err := s.lockOwned(ctx, userID, linkID)
		if err != nil {
			return err
		}
		if link.LinkType != models.LinkTypeGeo {
			return ErrNotGeoLink
		}
		if _, exists := link.RuleFor(code); exists {
			return ErrDuplicateCountry
		}

		rule := &models.GeoRule{
			ID:             uuid.New(),
			LinkID:         link.ID,
			Country:        country,
			CountryCode:    code,
			DestinationURL: destination,
		}
		if err := s.linkRepo.AddGeoRule(ctx, rule); err != nil {
			if errors.Is(err, repository.ErrCountryExists) {
				return ErrDuplicateCountry
			}
			return err
		}

		updated, err = s.linkRepo.GetByID(ctx, link.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.ShortCode)
	s.activities.Record(ctx, userID, models.ActivityGeoRuleCreated,
		fmt.Sprintf("You added a geo rule for %s on %s", country, updated.ShortCode), &updated.ID)
	return updated, nil
}

// RemoveGeoRule deletes one rule from a link owned by userID.
func (s *linkService) RemoveGeoRule(ctx context.Context, userID, linkID int64, ruleID uuid.UUID) (*models.Link, error) {
	var (
		updated *models.Link
		country string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		link, err := s.lockOwned(ctx, userID, linkID)
		if err != nil {
			return err
		}

		idx := slices.IndexFunc(link.GeoRules, func(r models.GeoRule) bool { return r.ID == ruleID })
		if idx < 0 {
			return ErrRuleNotFound
		}
		country = link.GeoRules[idx].Country

		if err := s.linkRepo.DeleteGeoRule(ctx, link.ID, ruleID); err != nil {
			if errors.Is(err, repository.ErrRuleNotFound) {
				return ErrRuleNotFound
			}
			return err
		}

		updated, err = s.linkRepo.GetByID(ctx, link.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.ShortCode)
	s.activities.Record(ctx, userID, models.ActivityGeoRuleDeleted,
		fmt.Sprintf("You removed the geo rule for %s on %s", country, updated.ShortCode), &updated.ID)
	return updated, nil
}

// ShortURL builds the public URL for a code.
func (s *linkService) ShortURL(code string) string {
	return s.cfg.BaseURL + "/" + code
}

// lockOwned loads and row-locks a link, then checks ownership. Must run inside a transaction.
func (s *linkService) lockOwned(ctx context.Context, userID, linkID int64) (*models.Link, error) {
	link, err := s.linkRepo.GetByIDForUpdate(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if link.CreatorID != userID {
		return nil, ErrNotLinkOwner
	}
	return link, nil
}

func (s *linkService) cache(ctx context.Context, link *models.Link) {
	if err := s.cacheRepo.Set(ctx, link, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache link", zap.String("code", link.ShortCode), zap.Error(err))
	}
}

func (s *linkService) invalidate(ctx context.Context, code string) {
	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Warn("failed to invalidate cached link", zap.String("code", code), zap.Error(err))
	}
}

// checkDestination validates a redirect target and rejects blocked domains.
func (s *linkService) checkDestination(raw string) error {
	host, err := validateURL(raw)
	if err != nil {
		return err
	}
	for _, domain := range s.cfg.BlockedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return ErrBlockedDomain
		}
	}
	return nil
}

// validateURL accepts http(s) URLs, scheme optional, and returns the lower-cased host.
func validateURL(raw string) (string, error) {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return "", ErrInvalidURL
	}

	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", ErrInvalidURL
	}
	return host, nil
}

func validateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAlias
	}
	if slices.Contains(reservedAliases, strings.ToLower(alias)) {
		return ErrReservedAlias
	}
	return nil
}

// generateShortCode returns a random code from the URL-safe alphabet.
func generateShortCode() (string, error) {
	result := make([]byte, codeLength)
	for i := range codeLength {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// withScheme prefixes https:// when the destination has no explicit http(s) scheme.
func withScheme(destination string) string {
	lower := strings.ToLower(destination)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return destination
	}
	return "https://" + destination
}
