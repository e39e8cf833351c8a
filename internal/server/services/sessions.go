package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/auth"
	"github.com/dmitrijs2005/artfeed/internal/server/config"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/users"
)

// sessionTokenBytes is the amount of randomness in a session token; the
// token itself is its hex encoding.
const sessionTokenBytes = 32

// SessionService issues and resolves login sessions (opaque tokens kept in a
// sessions.Repository) and short-lived API access tokens (JWT).
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       sessions.Repository

	ttl                         time.Duration
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration

	logger logging.Logger
	now    func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, store sessions.Repository, cfg *config.Config, logger logging.Logger) *SessionService {
	return &SessionService{
		db:                          db,
		repomanager:                 m,
		store:                       store,
		ttl:                         cfg.SessionTTL,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger,
		now:                         time.Now,
	}
}

// TTL is the lifetime of a freshly issued session.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue starts a new session for userID. A user may hold any number of
// sessions at once.
func (s *SessionService) Issue(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(sessionTokenBytes)
	if err != nil {
		return "", fmt.Errorf("error generating session token: %w", err)
	}
	if err := s.store.Create(ctx, userID, token, s.ttl); err != nil {
		return "", fmt.Errorf("error storing session: %w", err)
	}
	return token, nil
}

// Resolve returns the user owning the session token. Unknown tokens yield
// common.ErrInvalidToken; expired ones are deleted and yield
// common.ErrSessionExpired.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	session, err := s.store.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}

	if session.Expired(s.now()) {
		if err := s.store.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("error deleting expired session: %w", err)
		}
		return nil, common.ErrSessionExpired
	}

	user, err := s.findUser(ctx, session.UserID)
	if errors.Is(err, common.ErrInvalidToken) {
		// Orphaned session of a deleted user.
		if derr := s.store.Delete(ctx, token); derr != nil {
			s.logger.Warn(ctx, "deleting orphaned session", "user_id", session.UserID, "error", derr)
		}
	}
	return user, err
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// RevokeAll ends every session of the user.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting sessions: %w", err)
	}
	return nil
}

// IssueAccessToken mints a bearer token for API clients.
func (s *SessionService) IssueAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

// ResolveAccessToken verifies a bearer token and loads its user.
func (s *SessionService) ResolveAccessToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, userID)
}

func (s *SessionService) findUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID, users.FieldID, users.FieldUsername, users.FieldEmail)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}
