package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeResolver maps IPs to countries; unknown IPs fail.
type fakeResolver struct {
	mu      sync.Mutex
	byIP    map[string]models.GeoData
	lookups []string
}

func newFakeResolver(byIP map[string]models.GeoData) *fakeResolver {
	return &fakeResolver{byIP: byIP}
}

func (r *fakeResolver) Lookup(_ context.Context, ip string) (*models.GeoData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, ip)

	d, ok := r.byIP[ip]
	if !ok {
		return nil, errors.New("lookup failed")
	}
	return &d, nil
}

func (r *fakeResolver) Lookups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lookups...)
}

var (
	usVisitor = models.GeoData{CountryCode: "US", Country: "United States", Region: "California"}
	caVisitor = models.GeoData{CountryCode: "CA", Country: "Canada", Region: "Ontario"}
)

func setupRedirect(t *testing.T, devIP string) (*linkEnv, *fakeResolver, service.RedirectService) {
	t.Helper()
	env := setupLinkService(t)
	resolver := newFakeResolver(map[string]models.GeoData{
		"3.3.3.3": usVisitor,
		"4.4.4.4": caVisitor,
	})
	return env, resolver, service.NewRedirectService(env.svc, resolver, devIP, zap.NewNop())
}

func TestRedirect_DefaultURL(t *testing.T) {
	env, _, redirects := setupRedirect(t, "")
	ctx := context.Background()

	link, err := env.svc.CreateLink(ctx, 7, &models.CreateLinkInput{DefaultURL: "https://example.com/landing"})
	require.NoError(t, err)

	r, err := redirects.Resolve(ctx, link.ShortCode, "3.3.3.3", "Mozilla/5.0")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/landing", r.URL)
	assert.Equal(t, link.ID, r.Event.LinkID)
	assert.Equal(t, int64(7), r.Event.OwnerID)
	assert.Nil(t, r.Event.MatchedRuleID, "normal links never match rules")
	assert.Equal(t, "US", r.Event.Geo.CountryCode)
}

func TestRedirect_PrefixesScheme(t *testing.T) {
	env, _, redirects := setupRedirect(t, "")
	ctx := context.Background()

	link, err := env.svc.CreateLink(ctx, 1, &models.CreateLinkInput{DefaultURL: "example.com/no-scheme"})
	require.NoError(t, err)

	r, err := redirects.Resolve(ctx, link.ShortCode, "3.3.3.3", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/no-scheme", r.URL)
}

func TestRedirect_GeoRule(t *testing.T) {
	env, _, redirects := setupRedirect(t, "")
	ctx := context.Background()

	link := env.geoLink(t, 1)
	updated, err := env.svc.AddGeoRule(ctx, 1, link.ID, &models.GeoRuleInput{
		Country:        "United States",
		CountryCode:    "US",
		DestinationURL: "https://us.example.com/offer",
	})
	require.NoError(t, err)
	ruleID := updated.GeoRules[0].ID

	t.Run("matching country", func(t *testing.T) {
		r, err := redirects.Resolve(ctx, link.ShortCode, "3.3.3.3", "")
		require.NoError(t, err)
		assert.Equal(t, "https://us.example.com/offer", r.URL)
		require.NotNil(t, r.Event.MatchedRuleID)
		assert.Equal(t, ruleID, *r.Event.MatchedRuleID)
	})

	t.Run("other country", func(t *testing.T) {
		r, err := redirects.Resolve(ctx, link.ShortCode, "4.4.4.4", "")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/default", r.URL)
		assert.Nil(t, r.Event.MatchedRuleID)
	})

	t.Run("geo failure degrades to default", func(t *testing.T) {
		r, err := redirects.Resolve(ctx, link.ShortCode, "5.5.5.5", "")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/default", r.URL)
		assert.False(t, r.Event.Geo.Known())
	})
}

func TestRedirect_NotFound(t *testing.T) {
	_, resolver, redirects := setupRedirect(t, "")

	r, err := redirects.Resolve(context.Background(), "nope", "3.3.3.3", "")

	assert.ErrorIs(t, err, service.ErrLinkNotFound)
	assert.Nil(t, r)
	assert.Empty(t, resolver.Lookups(), "no geo lookup for unknown codes")
}

func TestRedirect_DevIPSubstitution(t *testing.T) {
	env, resolver, redirects := setupRedirect(t, "4.4.4.4")
	ctx := context.Background()

	link, err := env.svc.CreateLink(ctx, 1, &models.CreateLinkInput{DefaultURL: "https://example.com"})
	require.NoError(t, err)

	r, err := redirects.Resolve(ctx, link.ShortCode, "127.0.0.1", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"4.4.4.4"}, resolver.Lookups())
	assert.Equal(t, "CA", r.Event.Geo.CountryCode)
	assert.Equal(t, "4.4.4.4", r.Event.IPAddress, "recorded address matches the located one")
	assert.NotEqual(t, uuid.Nil, r.Event.EventID)
}
