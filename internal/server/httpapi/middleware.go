package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

// WithUser returns a copy of ctx carrying the signed-in user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the signed-in user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AccessTokenHeaderName)
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// sessionMiddleware resolves the requester from a bearer token or the
// session cookie. Requests without credentials continue anonymously; a
// stale cookie is cleared and the request continues anonymously too.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if token, ok := bearerToken(r); ok {
			user, err := s.sessions.ResolveAccessToken(ctx, token)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
			return
		}

		cookie, err := r.Cookie(common.SessionIDKey)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.sessions.Resolve(ctx, cookie.Value)
		switch {
		case err == nil:
			r = r.WithContext(WithUser(ctx, user))
		case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrSessionExpired):
			s.clearSessionCookie(w)
		default:
			s.fail(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
