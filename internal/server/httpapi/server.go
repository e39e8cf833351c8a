// Package httpapi exposes the account, post and image workflows over HTTP.
// Browser clients authenticate with the session cookie, API clients with a
// bearer access token.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/auth"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/dmitrijs2005/artfeed/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	handlerTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Accounts is implemented by *services.AccountService.
type Accounts interface {
	Login(ctx context.Context, form services.LoginForm) (string, error)
	Register(ctx context.Context, form services.RegisterForm) (string, error)
	Logout(ctx context.Context, token string) error
	ChangeUsername(ctx context.Context, requester *models.User, form services.ChangeUsernameForm) (string, error)
	ChangePassword(ctx context.Context, requester *models.User, form services.ChangePasswordForm) (string, error)
	DeleteAccount(ctx context.Context, requester *models.User) error
}

// Sessions is implemented by *services.SessionService.
type Sessions interface {
	TTL() time.Duration
	Resolve(ctx context.Context, token string) (*models.User, error)
	IssueAccessToken(userID string) (string, error)
	ResolveAccessToken(ctx context.Context, token string) (*models.User, error)
}

// Posts is implemented by *services.PostService.
type Posts interface {
	CreatePost(ctx context.Context, requester *models.User, form services.CreatePostForm) (*models.Post, error)
	FindPage(ctx context.Context, page int, orderBy string, ascending bool) ([]*models.Post, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindByAuthor(ctx context.Context, authorID string, page int) ([]*models.Post, error)
	DeletePost(ctx context.Context, requester *models.User, postID string) error
}

// Pinger reports database liveness; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address        string
	cookieSecure   bool
	allowedOrigins []string
	logger         logging.Logger

	accounts Accounts
	sessions Sessions
	posts    Posts
	images   services.ImageStore
	db       Pinger

	requirements func(kind auth.FieldKind, value string) auth.RequirementCheckResult
}

func NewServer(address string, cookieSecure bool, allowedOrigins []string, l logging.Logger, accounts Accounts, sessions Sessions, posts Posts, images services.ImageStore, db Pinger) *Server {
	return &Server{
		address:        address,
		cookieSecure:   cookieSecure,
		allowedOrigins: allowedOrigins,
		logger:         l.With("module", "http_server"),
		accounts:       accounts,
		sessions:       sessions,
		posts:          posts,
		images:         images,
		db:             db,
		requirements:   auth.Evaluate,
	}
}

// Routes builds the router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handlerTimeout))
	// cors treats an empty origin list as "*", so without configured
	// origins the middleware is left out and browsers stay same-origin.
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.sessionMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)

	r.Route("/profile/settings", func(r chi.Router) {
		r.Post("/username", s.handleChangeUsername)
		r.Post("/password", s.handleChangePassword)
		r.Post("/delete-account", s.handleDeleteAccount)
	})

	r.Get("/images/*", s.handleImage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/requirements/{kind}", s.handleRequirements)
		r.Post("/token", s.handleAccessToken)

		r.Get("/posts", s.handleListPosts)
		r.Post("/posts", s.handleCreatePost)
		r.Get("/posts/{id}", s.handleGetPost)
		r.Delete("/posts/{id}", s.handleDeletePost)
		r.Get("/users/{id}/posts", s.handleListAuthorPosts)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.Error(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
