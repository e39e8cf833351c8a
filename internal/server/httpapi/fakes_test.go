package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/dmitrijs2005/artfeed/internal/server/services"
)

var (
	errNotImplemented = errors.New("not implemented")
	errBoom           = errors.New("db error: connection refused")
)

type fakeAccounts struct {
	loginFunc          func(services.LoginForm) (string, error)
	registerFunc       func(services.RegisterForm) (string, error)
	logoutFunc         func(token string) error
	changeUsernameFunc func(*models.User, services.ChangeUsernameForm) (string, error)
	changePasswordFunc func(*models.User, services.ChangePasswordForm) (string, error)
	deleteAccountFunc  func(*models.User) error
}

func (f fakeAccounts) Login(_ context.Context, form services.LoginForm) (string, error) {
	if f.loginFunc == nil {
		return "", errNotImplemented
	}
	return f.loginFunc(form)
}

func (f fakeAccounts) Register(_ context.Context, form services.RegisterForm) (string, error) {
	if f.registerFunc == nil {
		return "", errNotImplemented
	}
	return f.registerFunc(form)
}

func (f fakeAccounts) Logout(_ context.Context, token string) error {
	if f.logoutFunc == nil {
		return errNotImplemented
	}
	return f.logoutFunc(token)
}

func (f fakeAccounts) ChangeUsername(_ context.Context, u *models.User, form services.ChangeUsernameForm) (string, error) {
	if f.changeUsernameFunc == nil {
		return "", errNotImplemented
	}
	return f.changeUsernameFunc(u, form)
}

func (f fakeAccounts) ChangePassword(_ context.Context, u *models.User, form services.ChangePasswordForm) (string, error) {
	if f.changePasswordFunc == nil {
		return "", errNotImplemented
	}
	return f.changePasswordFunc(u, form)
}

func (f fakeAccounts) DeleteAccount(_ context.Context, u *models.User) error {
	if f.deleteAccountFunc == nil {
		return errNotImplemented
	}
	return f.deleteAccountFunc(u)
}

// fakeSessions knows a fixed set of cookie tokens and bearer tokens.
type fakeSessions struct {
	cookies map[string]*models.User
	bearers map[string]*models.User
	err     error
}

func (f fakeSessions) TTL() time.Duration { return time.Hour }

func (f fakeSessions) Resolve(_ context.Context, token string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.cookies[token]; ok {
		return u, nil
	}
	return nil, common.ErrInvalidToken
}

func (f fakeSessions) IssueAccessToken(userID string) (string, error) {
	return "jwt-for-" + userID, nil
}

func (f fakeSessions) ResolveAccessToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := f.bearers[token]; ok {
		return u, nil
	}
	return nil, common.ErrInvalidToken
}

type fakePosts struct {
	createFunc   func(*models.User, services.CreatePostForm) (*models.Post, error)
	findPageFunc func(page int, orderBy string, ascending bool) ([]*models.Post, error)
	findByIDFunc func(id string) (*models.Post, error)
	byAuthorFunc func(authorID string, page int) ([]*models.Post, error)
	deleteFunc   func(*models.User, string) error
}

func (f fakePosts) CreatePost(_ context.Context, u *models.User, form services.CreatePostForm) (*models.Post, error) {
	if f.createFunc == nil {
		return nil, errNotImplemented
	}
	return f.createFunc(u, form)
}

func (f fakePosts) FindPage(_ context.Context, page int, orderBy string, ascending bool) ([]*models.Post, error) {
	if f.findPageFunc == nil {
		return nil, errNotImplemented
	}
	return f.findPageFunc(page, orderBy, ascending)
}

func (f fakePosts) FindByID(_ context.Context, id string) (*models.Post, error) {
	if f.findByIDFunc == nil {
		return nil, errNotImplemented
	}
	return f.findByIDFunc(id)
}

func (f fakePosts) FindByAuthor(_ context.Context, authorID string, page int) ([]*models.Post, error) {
	if f.byAuthorFunc == nil {
		return nil, errNotImplemented
	}
	return f.byAuthorFunc(authorID, page)
}

func (f fakePosts) DeletePost(_ context.Context, u *models.User, id string) error {
	if f.deleteFunc == nil {
		return errNotImplemented
	}
	return f.deleteFunc(u, id)
}

type fakeImages struct{}

func (fakeImages) Put(context.Context, []byte) (string, error) { return "", errNotImplemented }
func (fakeImages) Delete(context.Context, string) error { return errNotImplemented }
func (fakeImages) PresignGet(_ context.Context, key string) (string, error) {
	return "https://s3.local/artfeed/" + key + "?sig=1", nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

const (
	aliceCookie = "alice-session"
	aliceBearer = "alice-jwt"
)

var alice = &models.User{ID: "u1", Username: "alice"}

func testSessions() fakeSessions {
	return fakeSessions{
		cookies: map[string]*models.User{aliceCookie: alice},
		bearers: map[string]*models.User{aliceBearer: alice},
	}
}

func newTestServer(accounts Accounts, sessions Sessions, posts Posts) http.Handler {
	s := NewServer(":0", true, nil, logging.Nop{}, accounts, sessions, posts, fakeImages{}, fakePinger{})
	return s.Routes()
}

func postForm(t *testing.T, h http.Handler, path string, values url.Values, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: common.SessionIDKey, Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionIDKey {
			return c
		}
	}
	return nil
}
