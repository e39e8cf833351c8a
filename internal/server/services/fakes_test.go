package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/dbx"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/config"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	postsrepo "github.com/dmitrijs2005/artfeed/internal/server/repositories/posts"
	sessionsrepo "github.com/dmitrijs2005/artfeed/internal/server/repositories/sessions"
	usersrepo "github.com/dmitrijs2005/artfeed/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// fakeUsersRepo keeps users in memory keyed by id and counts every call.
type fakeUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
	calls int

	err error // returned by every method when set
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) touch() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeUsersRepo) FindByName(ctx context.Context, name string) (*models.User, error) {
	if err := f.touch(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Username == name {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string, fields ...usersrepo.Field) (*models.User, error) {
	if err := f.touch(); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := f.touch(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	user.ID = "u-" + user.Username
	user.CreatedAt = time.Now()
	c := *user
	f.users[user.ID] = &c
	return user, nil
}

func (f *fakeUsersRepo) UpdateUsername(ctx context.Context, id string, name string) (string, error) {
	if err := f.touch(); err != nil {
		return "", err
	}
	u, ok := f.users[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	for _, other := range f.users {
		if other.Username == name && other.ID != id {
			return "", common.ErrorAlreadyExists
		}
	}
	u.Username = name
	return name, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id string, hash string) (string, error) {
	if err := f.touch(); err != nil {
		return "", err
	}
	u, ok := f.users[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	u.Password = hash
	return id, nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) (bool, error) {
	if err := f.touch(); err != nil {
		return false, err
	}
	if _, ok := f.users[id]; !ok {
		return false, nil
	}
	delete(f.users, id)
	return true, nil
}

// fakeSessionsRepo is an in-memory sessions.Repository.
type fakeSessionsRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	calls    int
	err      error
	// deleteErr fails only Delete, after any lookups succeeded.
	deleteErr error
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{sessions: map[string]*models.Session{}}
}

func (f *fakeSessionsRepo) touch() error {
	f.calls++
	return f.err
}

func (f *fakeSessionsRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	now := time.Now()
	f.sessions[token] = &models.Session{Token: token, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(validity)}
	return nil
}

func (f *fakeSessionsRepo) Find(ctx context.Context, token string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return nil, err
	}
	s, ok := f.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionsRepo) DeleteByUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.touch(); err != nil {
		return err
	}
	for token, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, token)
		}
	}
	return nil
}

func (f *fakeSessionsRepo) count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// fakePostsRepo records its inputs and returns canned outputs.
type fakePostsRepo struct {
	calls int

	created   *models.Post
	createErr error

	findOut *models.Post
	findErr error

	pageOut    []*models.Post
	pageErr    error
	gotPage    int
	gotLimit   int
	gotOrderBy postsrepo.OrderBy
	gotAsc     bool
	gotAuthor  string

	deleteOut bool
	deleteErr error
}

func (f *fakePostsRepo) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	f.calls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	post.ID = "p1"
	f.created = post
	return post, nil
}

func (f *fakePostsRepo) FindByID(ctx context.Context, id string) (*models.Post, error) {
	f.calls++
	return f.findOut, f.findErr
}

func (f *fakePostsRepo) FindPage(ctx context.Context, page, limit int, orderBy postsrepo.OrderBy, ascending bool) ([]*models.Post, error) {
	f.calls++
	f.gotPage, f.gotLimit, f.gotOrderBy, f.gotAsc = page, limit, orderBy, ascending
	return f.pageOut, f.pageErr
}

func (f *fakePostsRepo) FindByAuthor(ctx context.Context, page, limit int, authorID string) ([]*models.Post, error) {
	f.calls++
	f.gotPage, f.gotLimit, f.gotAuthor = page, limit, authorID
	return f.pageOut, f.pageErr
}

func (f *fakePostsRepo) DeleteByID(ctx context.Context, postID, authorID string) (bool, error) {
	f.calls++
	f.gotAuthor = authorID
	return f.deleteOut, f.deleteErr
}

// fakeRepoManager counts how often each repository was requested.
type fakeRepoManager struct {
	u *fakeUsersRepo
	s *fakeSessionsRepo
	p *fakePostsRepo

	usersCalls int
	postsCalls int
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository {
	m.usersCalls++
	return m.u
}
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository { return m.s }
func (m *fakeRepoManager) Posts(db dbx.DBTX) postsrepo.Repository {
	m.postsCalls++
	return m.p
}

// plainHasher stores "hashed:" + password so tests can read it back.
type plainHasher struct {
	hashErr error
}

func (h plainHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h plainHasher) Matches(password, stored string) bool {
	return strings.TrimPrefix(stored, "hashed:") == password && strings.HasPrefix(stored, "hashed:")
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		SessionTTL:                  time.Hour,
		AccessTokenValidityDuration: time.Minute,
	}
}

type accountFixture struct {
	svc      *AccountService
	sessions *SessionService
	rm       *fakeRepoManager
	users    *fakeUsersRepo
	store    *fakeSessionsRepo
}

func newAccountFixture(t *testing.T, users ...*models.User) *accountFixture {
	t.Helper()
	db, _ := newSQLMockDB(t)

	ur := newFakeUsersRepo(users...)
	store := newFakeSessionsRepo()
	rm := &fakeRepoManager{u: ur, s: store}
	sessions := NewSessionService(db, rm, store, testConfig(), logging.Nop{})
	return &accountFixture{
		svc:      NewAccountService(db, rm, sessions, plainHasher{}, logging.Nop{}),
		sessions: sessions,
		rm:       rm,
		users:    ur,
		store:    store,
	}
}
