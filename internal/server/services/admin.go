package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/server/auth"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/repomanager"
)

// AdminService maintains accounts by username on behalf of an operator.
// It applies the same requirement rules as self-service registration.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
	hasher      PasswordHasher
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionService, hasher PasswordHasher) *AdminService {
	return &AdminService{db: db, repomanager: m, sessions: sessions, hasher: hasher}
}

func (s *AdminService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if !auth.EvaluateUsername(username).OK() {
		return nil, common.Fail(common.ErrorValidation, ReasonUsernameRequirements, nil)
	}
	if !auth.EvaluatePassword(password).OK() {
		return nil, common.Fail(common.ErrorValidation, ReasonPasswordRequirements, nil)
	}
	if email != "" && !auth.EvaluateEmail(email).OK() {
		return nil, common.Fail(common.ErrorValidation, ReasonEmailRequirements, nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Username: username, Email: email, Password: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Fail(common.ErrorValidation, ReasonUsernameTaken, nil)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

func (s *AdminService) findByName(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByName(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Fail(common.ErrorNotFound, ReasonUnknownUsername, nil)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

// SetPassword replaces the password without knowing the old one and signs
// the user out everywhere.
func (s *AdminService) SetPassword(ctx context.Context, username, password string) error {
	if !auth.EvaluatePassword(password).OK() {
		return common.Fail(common.ErrorValidation, ReasonPasswordRequirements, nil)
	}

	user, err := s.findByName(ctx, username)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if _, err := s.repomanager.Users(s.db).UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return userDoesNotExist(user.ID, nil)
		}
		return fmt.Errorf("error updating password: %w", err)
	}

	return s.sessions.RevokeAll(ctx, user.ID)
}

func (s *AdminService) DeleteUser(ctx context.Context, username string) error {
	user, err := s.findByName(ctx, username)
	if err != nil {
		return err
	}

	deleted, err := s.repomanager.Users(s.db).Delete(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if !deleted {
		return userDoesNotExist(user.ID, nil)
	}

	return s.sessions.RevokeAll(ctx, user.ID)
}
