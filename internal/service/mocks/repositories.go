package mocks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"github.com/google/uuid"
)

// ErrInjected is returned by mocks configured to fail.
var ErrInjected = errors.New("injected failure")

func cloneLink(l *models.Link) *models.Link {
	c := *l
	c.GeoRules = slices.Clone(l.GeoRules)
	if c.GeoRules == nil {
		c.GeoRules = []models.GeoRule{}
	}
	return &c
}

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu     sync.RWMutex
	links  map[int64]*models.Link
	nextID int64

	// FailIncrements makes the next N counter increments fail.
	FailIncrements int
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[int64]*models.Link),
		nextID: 1,
	}
}

func (m *MockLinkRepository) byCode(code string) *models.Link {
	for _, l := range m.links {
		if l.ShortCode == code {
			return l
		}
	}
	return nil
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byCode(link.ShortCode) != nil {
		return repository.ErrCodeExists
	}

	link.ID = m.nextID
	m.nextID++
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	if link.GeoRules == nil {
		link.GeoRules = []models.GeoRule{}
	}
	m.links[link.ID] = cloneLink(link)
	return nil
}

func (m *MockLinkRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byCode(code) != nil, nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link := m.byCode(code)
	if link == nil {
		return nil, repository.ErrLinkNotFound
	}
	return cloneLink(link), nil
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id int64) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[id]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return cloneLink(link), nil
}

func (m *MockLinkRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Link, error) {
	return m.GetByID(ctx, id)
}

func (m *MockLinkRepository) ListByCreator(ctx context.Context, creatorID int64, linkType *models.LinkType) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Link{}
	for _, l := range m.links {
		if l.CreatorID != creatorID {
			continue
		}
		if linkType != nil && l.LinkType != *linkType {
			continue
		}
		out = append(out, *cloneLink(l))
	}
	slices.SortFunc(out, func(a, b models.Link) int { return int(b.ID - a.ID) })
	return out, nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[id]; !exists {
		return repository.ErrLinkNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MockLinkRepository) AddGeoRule(ctx context.Context, rule *models.GeoRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[rule.LinkID]
	if !exists {
		return repository.ErrLinkNotFound
	}
	if _, dup := link.RuleFor(rule.CountryCode); dup {
		return repository.ErrCountryExists
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CreatedAt = time.Now()
	link.GeoRules = append(link.GeoRules, *rule)
	return nil
}

func (m *MockLinkRepository) DeleteGeoRule(ctx context.Context, linkID int64, ruleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[linkID]
	if !exists {
		return repository.ErrLinkNotFound
	}
	idx := slices.IndexFunc(link.GeoRules, func(r models.GeoRule) bool { return r.ID == ruleID })
	if idx < 0 {
		return repository.ErrRuleNotFound
	}
	link.GeoRules = slices.Delete(link.GeoRules, idx, idx+1)
	return nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailIncrements > 0 {
		m.FailIncrements--
		return ErrInjected
	}
	link, exists := m.links[linkID]
	if !exists {
		return repository.ErrLinkNotFound
	}
	link.TotalClicks++
	return nil
}

func (m *MockLinkRepository) IncrementRuleClicks(ctx context.Context, ruleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, link := range m.links {
		for i := range link.GeoRules {
			if link.GeoRules[i].ID == ruleID {
				link.GeoRules[i].Clicks++
				return nil
			}
		}
	}
	return repository.ErrRuleNotFound
}

func (m *MockLinkRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return cloneLink(link), nil
}

func (m *MockCacheRepository) Set(ctx context.Context, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[link.ShortCode] = cloneLink(link)
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) Has(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[code]
	return ok
}

// MockClickRepository implements repository.ClickRepository for testing
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks []models.Click

	// FailTimes makes the next N writes fail.
	FailTimes int
	// FailAfterWrite makes the next N writes store the click and still return an error,
	// like a commit whose acknowledgement is lost.
	FailAfterWrite int
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{}
}

func (m *MockClickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailTimes > 0 {
		m.FailTimes--
		return ErrInjected
	}
	if !slices.ContainsFunc(m.clicks, func(c models.Click) bool { return c.EventID == click.EventID }) {
		click.ID = int64(len(m.clicks) + 1)
		m.clicks = append(m.clicks, *click)
	}
	if m.FailAfterWrite > 0 {
		m.FailAfterWrite--
		return ErrInjected
	}
	return nil
}

func (m *MockClickRepository) Clicks() []models.Click {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.clicks)
}

// MockDeadLetterRepository implements repository.DeadLetterRepository for testing
type MockDeadLetterRepository struct {
	mu      sync.Mutex
	letters []models.DeadLetter
}

func NewMockDeadLetterRepository() *MockDeadLetterRepository {
	return &MockDeadLetterRepository{}
}

func (m *MockDeadLetterRepository) Push(ctx context.Context, letter *models.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters = append(m.letters, *letter)
	return nil
}

func (m *MockDeadLetterRepository) Pop(ctx context.Context) (*models.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.letters) == 0 {
		return nil, nil
	}
	letter := m.letters[0]
	m.letters = m.letters[1:]
	return &letter, nil
}

func (m *MockDeadLetterRepository) Len(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.letters)), nil
}

func (m *MockDeadLetterRepository) Letters() []models.DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.letters)
}

// MockActivityRepository implements repository.ActivityRepository for testing
type MockActivityRepository struct {
	mu         sync.RWMutex
	activities []models.Activity
	Fail       bool
}

func NewMockActivityRepository() *MockActivityRepository {
	return &MockActivityRepository{}
}

func (m *MockActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return ErrInjected
	}
	activity.ID = int64(len(m.activities) + 1)
	activity.CreatedAt = time.Now()
	m.activities = append(m.activities, *activity)
	return nil
}

func (m *MockActivityRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Activity{}
	for i := len(m.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if m.activities[i].UserID == userID {
			out = append(out, m.activities[i])
		}
	}
	return out, nil
}

func (m *MockActivityRepository) All() []models.Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.activities)
}

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mu     sync.RWMutex
	users  map[int64]*models.User
	nextID int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[int64]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	c := *user
	m.users[user.ID] = &c
	return nil
}

// MockTransactor runs fn directly. It does not roll back.
type MockTransactor struct{}

func (MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
