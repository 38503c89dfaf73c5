package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/geolink/internal/config"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RepositorySuite struct {
	suite.Suite
	ctx            context.Context
	pgContainer    *postgres.PostgresContainer
	redisContainer *tcredis.RedisContainer

	db    *repository.PostgresDB
	redis *repository.RedisDB
	tx    repository.Transactor

	users      repository.UserRepository
	links      repository.LinkRepository
	clicks     repository.ClickRepository
	stats      repository.StatsRepository
	activities repository.ActivityRepository
	cache      repository.CacheRepository
	geoCache   repository.GeoCacheRepository
	dead       repository.DeadLetterRepository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	pgContainer, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("geolink"),
		postgres.WithUsername("geolink"),
		postgres.WithPassword("geolink"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.pgContainer = pgContainer

	redisContainer, err := tcredis.Run(s.ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.redisContainer = redisContainer

	dbHost, err := pgContainer.Host(s.ctx)
	s.Require().NoError(err)
	dbPort, err := pgContainer.MappedPort(s.ctx, "5432")
	s.Require().NoError(err)

	dbCfg := config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "geolink",
		Password: "geolink",
		Name:     "geolink",
		SSLMode:  "disable",
	}
	s.Require().NoError(repository.Migrate(dbCfg.DSN()))
	// Running twice must be a no-op.
	s.Require().NoError(repository.Migrate(dbCfg.DSN()))

	s.db, err = repository.NewPostgresDB(dbCfg)
	s.Require().NoError(err)

	redisHost, err := redisContainer.Host(s.ctx)
	s.Require().NoError(err)
	redisPort, err := redisContainer.MappedPort(s.ctx, "6379")
	s.Require().NoError(err)

	s.redis, err = repository.NewRedisClient(config.RedisConfig{Host: redisHost, Port: redisPort.Port()})
	s.Require().NoError(err)

	s.tx = repository.NewTransactor(s.db)
	s.users = repository.NewUserRepository(s.db)
	s.links = repository.NewLinkRepository(s.db)
	s.clicks = repository.NewClickRepository(s.db)
	s.stats = repository.NewStatsRepository(s.db)
	s.activities = repository.NewActivityRepository(s.db)
	s.cache = repository.NewCacheRepository(s.redis)
	s.geoCache = repository.NewGeoCacheRepository(s.redis)
	s.dead = repository.NewDeadLetterRepository(s.redis)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
	if s.redisContainer != nil {
		_ = s.redisContainer.Terminate(s.ctx)
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.Pool.Exec(s.ctx, `TRUNCATE users, links, geo_rules, clicks, activities RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
	s.Require().NoError(s.redis.Client.FlushDB(s.ctx).Err())
}

func (s *RepositorySuite) newUser(email string) *models.User {
	u := &models.User{Name: "Test", Email: email, PasswordHash: "hash"}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return u
}

func (s *RepositorySuite) newLink(owner int64, code string, linkType models.LinkType) *models.Link {
	l := &models.Link{
		CreatorID:  owner,
		LinkType:   linkType,
		ShortCode:  code,
		DefaultURL: "https://example.com/" + code,
		Title:      "title " + code,
	}
	s.Require().NoError(s.links.Create(s.ctx, l))
	return l
}

func (s *RepositorySuite) TestUsers() {
	u := s.newUser("a@example.com")

	err := s.users.Create(s.ctx, &models.User{Name: "Dup", Email: "a@example.com", PasswordHash: "x"})
	s.ErrorIs(err, repository.ErrEmailExists)

	got, err := s.users.GetByEmail(s.ctx, "a@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)

	got.Name = "Renamed"
	got.Avatar = "https://img.example.com/a.png"
	s.Require().NoError(s.users.Update(s.ctx, got))

	got, err = s.users.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)

	_, err = s.users.GetByID(s.ctx, 9999)
	s.ErrorIs(err, repository.ErrUserNotFound)
}

func (s *RepositorySuite) TestLinkLifecycle() {
	u := s.newUser("links@example.com")
	link := s.newLink(u.ID, "abc1234", models.LinkTypeGeo)
	s.NotZero(link.ID)

	exists, err := s.links.ExistsByShortCode(s.ctx, "abc1234")
	s.Require().NoError(err)
	s.True(exists)

	dup := &models.Link{CreatorID: u.ID, LinkType: models.LinkTypeNormal, ShortCode: "abc1234", DefaultURL: "https://x.io"}
	s.ErrorIs(s.links.Create(s.ctx, dup), repository.ErrCodeExists)

	us := &models.GeoRule{LinkID: link.ID, Country: "United States", CountryCode: "US", DestinationURL: "https://us.example.com"}
	ca := &models.GeoRule{LinkID: link.ID, Country: "Canada", CountryCode: "CA", DestinationURL: "https://ca.example.com"}
	s.Require().NoError(s.links.AddGeoRule(s.ctx, us))
	s.Require().NoError(s.links.AddGeoRule(s.ctx, ca))
	s.ErrorIs(s.links.AddGeoRule(s.ctx, &models.GeoRule{LinkID: link.ID, Country: "USA", CountryCode: "US", DestinationURL: "https://x.io"}),
		repository.ErrCountryExists)

	got, err := s.links.GetByShortCode(s.ctx, "abc1234")
	s.Require().NoError(err)
	s.Require().Len(got.GeoRules, 2)
	s.Equal("US", got.GeoRules[0].CountryCode)
	s.Equal("CA", got.GeoRules[1].CountryCode)

	geoType := models.LinkTypeGeo
	listed, err := s.links.ListByCreator(s.ctx, u.ID, &geoType)
	s.Require().NoError(err)
	s.Len(listed, 1)

	normalType := models.LinkTypeNormal
	listed, err = s.links.ListByCreator(s.ctx, u.ID, &normalType)
	s.Require().NoError(err)
	s.Empty(listed)

	s.Require().NoError(s.links.DeleteGeoRule(s.ctx, link.ID, us.ID))
	s.ErrorIs(s.links.DeleteGeoRule(s.ctx, link.ID, us.ID), repository.ErrRuleNotFound)

	s.Require().NoError(s.links.Delete(s.ctx, link.ID))
	_, err = s.links.GetByID(s.ctx, link.ID)
	s.ErrorIs(err, repository.ErrLinkNotFound)
	s.ErrorIs(s.links.Delete(s.ctx, link.ID), repository.ErrLinkNotFound)
}

func (s *RepositorySuite) TestConcurrentIncrements() {
	u := s.newUser("inc@example.com")
	link := s.newLink(u.ID, "inc0001", models.LinkTypeGeo)
	rule := &models.GeoRule{LinkID: link.ID, Country: "Germany", CountryCode: "DE", DestinationURL: "https://de.example.com"}
	s.Require().NoError(s.links.AddGeoRule(s.ctx, rule))

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(s.T(), s.links.IncrementClicks(s.ctx, link.ID))
			require.NoError(s.T(), s.links.IncrementRuleClicks(s.ctx, rule.ID))
		}()
	}
	wg.Wait()

	got, err := s.links.GetByID(s.ctx, link.ID)
	s.Require().NoError(err)
	s.EqualValues(n, got.TotalClicks)
	s.EqualValues(n, got.GeoRules[0].Clicks)

	s.ErrorIs(s.links.IncrementRuleClicks(s.ctx, uuid.New()), repository.ErrRuleNotFound)
}

func (s *RepositorySuite) TestTransactionRollback() {
	u := s.newUser("tx@example.com")
	link := s.newLink(u.ID, "tx00001", models.LinkTypeNormal)

	err := s.tx.WithinTx(s.ctx, func(ctx context.Context) error {
		locked, err := s.links.GetByIDForUpdate(ctx, link.ID)
		if err != nil {
			return err
		}
		if err := s.links.Delete(ctx, locked.ID); err != nil {
			return err
		}
		return context.Canceled
	})
	s.ErrorIs(err, context.Canceled)

	_, err = s.links.GetByID(s.ctx, link.ID)
	s.NoError(err, "delete must be rolled back")
}

func (s *RepositorySuite) TestStats() {
	owner := s.newUser("owner@example.com")
	other := s.newUser("other@example.com")

	geoLink := s.newLink(owner.ID, "geo0001", models.LinkTypeGeo)
	plain := s.newLink(owner.ID, "pln0001", models.LinkTypeNormal)
	foreign := s.newLink(other.ID, "frn0001", models.LinkTypeNormal)

	rule := &models.GeoRule{LinkID: geoLink.ID, Country: "United States", CountryCode: "US", DestinationURL: "https://us.example.com"}
	s.Require().NoError(s.links.AddGeoRule(s.ctx, rule))

	now := time.Now()
	record := func(link *models.Link, ip string, at time.Time, matched bool, deviceType string) {
		c := &models.Click{
			EventID:   uuid.New(),
			LinkID:    link.ID,
			OwnerID:   link.CreatorID,
			ClickedAt: at,
			IPAddress: ip,
			Device:    models.Device{Browser: "Chrome", OS: "Linux", Type: deviceType},
		}
		if matched {
			c.WasGeoRedirect = true
			c.MatchedRuleID = &rule.ID
			c.Geo = models.GeoData{CountryCode: "US", Country: "United States"}
		}
		s.Require().NoError(s.clicks.RecordClick(s.ctx, c))
		s.Require().NoError(s.links.IncrementClicks(s.ctx, link.ID))
	}

	record(geoLink, "1.1.1.1", now, true, "mobile")
	record(geoLink, "1.1.1.1", now, true, "mobile")
	record(geoLink, "2.2.2.2", now, false, "desktop")
	record(plain, "3.3.3.3", now, false, "")
	record(plain, "3.3.3.3", now.AddDate(0, 0, -45), false, "desktop")
	record(foreign, "9.9.9.9", now, false, "desktop")

	current := models.Window{From: now.AddDate(0, 0, -30)}
	previous := models.Window{From: now.AddDate(0, 0, -60), To: now.AddDate(0, 0, -30)}

	n, err := s.stats.CountClicks(s.ctx, owner.ID, current)
	s.Require().NoError(err)
	s.EqualValues(4, n)

	n, err = s.stats.CountClicks(s.ctx, owner.ID, previous)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	n, err = s.stats.CountClicks(s.ctx, owner.ID, models.Window{})
	s.Require().NoError(err)
	s.EqualValues(5, n)

	n, err = s.stats.CountUniqueVisitors(s.ctx, owner.ID, current)
	s.Require().NoError(err)
	s.EqualValues(3, n)

	n, err = s.stats.CountLinks(s.ctx, owner.ID, models.Window{})
	s.Require().NoError(err)
	s.EqualValues(2, n)

	devices, err := s.stats.DeviceBreakdown(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]models.DeviceCount{
		{Name: "mobile", Value: 2},
		{Name: "desktop", Value: 2},
		{Name: "Other", Value: 1},
	}, devices)

	geo, err := s.stats.GeoDistribution(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal([]models.GeoBucket{
		{Country: "United States", Clicks: 2},
		{Country: "Others", Clicks: 1},
	}, geo)

	top, err := s.stats.TopLinks(s.ctx, owner.ID, 5)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("geo0001", top[0].ShortCode)
	s.EqualValues(3, top[0].Clicks)
	s.EqualValues(2, top[0].UniqueVisitors)

	daily, err := s.stats.DailyClicks(s.ctx, owner.ID, now.AddDate(0, 0, -7), "UTC")
	s.Require().NoError(err)
	s.Require().NotEmpty(daily)
	var total int64
	for _, d := range daily {
		total += d.Clicks
	}
	s.EqualValues(4, total)

	hourly, err := s.stats.HourlyClicks(s.ctx, owner.ID, now.Add(-time.Minute), "UTC")
	s.Require().NoError(err)
	s.Require().Len(hourly, 1)
	s.Equal(now.UTC().Hour(), hourly[0].Hour)

	geoClicks, err := s.stats.CountGeoRedirects(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.EqualValues(2, geoClicks)

	summary, err := s.stats.GeoRuleSummary(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.EqualValues(1, summary.TotalGeoRules)
	s.Equal([]string{"US"}, summary.CountriesTargeted)

	// Click history outlives the link.
	s.Require().NoError(s.links.Delete(s.ctx, plain.ID))
	n, err = s.stats.CountClicks(s.ctx, owner.ID, models.Window{})
	s.Require().NoError(err)
	s.EqualValues(5, n)
}

func (s *RepositorySuite) TestEmptyGeoRuleSummary() {
	u := s.newUser("empty@example.com")

	summary, err := s.stats.GeoRuleSummary(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Zero(summary.TotalGeoRules)
	s.Empty(summary.CountriesTargeted)
}

func (s *RepositorySuite) TestRecordClickIdempotent() {
	owner := s.newUser("owner@example.com")
	link := s.newLink(owner.ID, "dup0001", models.LinkTypeNormal)

	eventID := uuid.New()
	first := &models.Click{EventID: eventID, LinkID: link.ID, OwnerID: owner.ID, ClickedAt: time.Now(), IPAddress: "1.1.1.1"}
	s.Require().NoError(s.clicks.RecordClick(s.ctx, first))
	s.NotZero(first.ID)

	again := &models.Click{EventID: eventID, LinkID: link.ID, OwnerID: owner.ID, ClickedAt: time.Now(), IPAddress: "1.1.1.1"}
	s.Require().NoError(s.clicks.RecordClick(s.ctx, again))
	s.Zero(again.ID)

	other := &models.Click{EventID: uuid.New(), LinkID: link.ID, OwnerID: owner.ID, ClickedAt: time.Now(), IPAddress: "1.1.1.1"}
	s.Require().NoError(s.clicks.RecordClick(s.ctx, other))

	n, err := s.stats.CountClicks(s.ctx, owner.ID, models.Window{})
	s.Require().NoError(err)
	s.EqualValues(2, n)
}

func (s *RepositorySuite) TestActivities() {
	u := s.newUser("act@example.com")
	linkID := int64(42)

	for i := range 12 {
		a := &models.Activity{UserID: u.ID, EventType: models.ActivityURLCreated, Message: "created", RelatedLinkID: &linkID}
		if i == 11 {
			a.EventType = models.ActivityURLDeleted
		}
		s.Require().NoError(s.activities.Create(s.ctx, a))
	}

	recent, err := s.activities.ListRecent(s.ctx, u.ID, 10)
	s.Require().NoError(err)
	s.Len(recent, 10)
	s.Equal(models.ActivityURLDeleted, recent[0].EventType)
}

func (s *RepositorySuite) TestRedisStores() {
	link := &models.Link{ID: 1, ShortCode: "cache01", DefaultURL: "https://example.com", GeoRules: []models.GeoRule{}}

	_, err := s.cache.Get(s.ctx, "cache01")
	s.ErrorIs(err, repository.ErrCacheMiss)

	s.Require().NoError(s.cache.Set(s.ctx, link, time.Minute))
	got, err := s.cache.Get(s.ctx, "cache01")
	s.Require().NoError(err)
	s.Equal(link.DefaultURL, got.DefaultURL)

	s.Require().NoError(s.cache.Delete(s.ctx, "cache01"))
	_, err = s.cache.Get(s.ctx, "cache01")
	s.ErrorIs(err, repository.ErrCacheMiss)

	s.Require().NoError(s.geoCache.Set(s.ctx, "8.8.8.8", &models.GeoData{CountryCode: "US"}, time.Minute))
	geo, err := s.geoCache.Get(s.ctx, "8.8.8.8")
	s.Require().NoError(err)
	s.Equal("US", geo.CountryCode)

	letter, err := s.dead.Pop(s.ctx)
	s.Require().NoError(err)
	s.Nil(letter)

	s.Require().NoError(s.dead.Push(s.ctx, &models.DeadLetter{Task: models.TaskRecordClick, Event: models.ClickEvent{LinkID: 1}}))
	s.Require().NoError(s.dead.Push(s.ctx, &models.DeadLetter{Task: models.TaskIncrementLink, Event: models.ClickEvent{LinkID: 2}}))

	size, err := s.dead.Len(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, size)

	letter, err = s.dead.Pop(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.TaskRecordClick, letter.Task)
}
