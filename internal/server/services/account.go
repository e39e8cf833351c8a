// Package services contains server-side business logic: account workflows
// (login, registration, settings), sessions, posts and image storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/auth"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/users"
	"github.com/go-playground/validator/v10"
)

// User-facing reasons and messages of the account workflows.
const (
	ReasonMissingFields          = "At least one of the required fields is missing!"
	ReasonUnknownUsername        = "We could not find anyone with this username!"
	ReasonWrongPassword          = "The password is incorrect!"
	ReasonUsernameRequirements   = "The username did not meet the requirements!"
	ReasonPasswordRequirements   = "The password did not meet the requirements!"
	ReasonEmailRequirements      = "The email did not meet the requirements!"
	ReasonUsernameTaken          = "This username is already taken!"
	ReasonPasswordsDiffer        = "The password does not match the confirmed password!"
	ReasonNewPasswordsDiffer     = "The new password does not match the confirmed new password!"
	ReasonOldPasswordMismatch    = "The old password does not match the actual password!"
	ReasonUnauthorizedDelete     = "You are not authorized to delete your account, without being a signed in user!"
	ReasonUnauthorizedUsername   = "You are not authorized to change a username, without being a signed in user!"
	ReasonUnauthorizedPassword   = "You are not authorized to change a password, without being a signed in user!"
	MessageUsernameChanged       = "The username was changed successfully!"
	MessagePasswordChanged       = "The password was changed successfully!"
	reasonUserDoesNotExistFormat = "A user with the id: %s does not exist!"
)

// PasswordHasher is satisfied by *cryptox.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, stored string) bool
}

type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// RegisterForm carries the profile picture already encoded as a data URL.
type RegisterForm struct {
	Username          string `validate:"required"`
	Email             string
	Password          string `validate:"required"`
	ConfirmedPassword string `validate:"required"`
	ProfilePicture    string
}

type ChangeUsernameForm struct {
	NewUsername string `validate:"required"`
}

type ChangePasswordForm struct {
	OldPassword          string `validate:"required"`
	NewPassword          string `validate:"required"`
	ConfirmedNewPassword string `validate:"required"`
}

// AccountService runs the account workflows. Each one checks its gates in
// order (requester, required fields, field rules, stored credentials) and
// stops at the first failure before touching storage. Expected failures are
// *common.ReasonError values; anything else is an infrastructure error.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
	hasher      PasswordHasher
	validate    *validator.Validate
	logger      logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionService, hasher PasswordHasher, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		sessions:    sessions,
		hasher:      hasher,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger,
	}
}

func userDoesNotExist(id string, fields map[string]string) error {
	return common.Fail(common.ErrorNotFound, fmt.Sprintf(reasonUserDoesNotExistFormat, id), fields)
}

// Login verifies the credentials and returns a new session token.
func (s *AccountService) Login(ctx context.Context, form LoginForm) (string, error) {
	echo := map[string]string{"username": form.Username}

	if err := s.validate.Struct(form); err != nil {
		return "", common.Fail(common.ErrorValidation, ReasonMissingFields, echo)
	}

	user, err := s.repomanager.Users(s.db).FindByName(ctx, form.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.Fail(common.ErrorCredentialMismatch, ReasonUnknownUsername, echo)
		}
		return "", fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Matches(form.Password, user.Password) {
		return "", common.Fail(common.ErrorCredentialMismatch, ReasonWrongPassword, echo)
	}

	return s.sessions.Issue(ctx, user.ID)
}

// Register creates the account and signs it in.
func (s *AccountService) Register(ctx context.Context, form RegisterForm) (string, error) {
	echo := map[string]string{"username": form.Username, "email": form.Email}

	if err := s.validate.Struct(form); err != nil {
		return "", common.Fail(common.ErrorValidation, ReasonMissingFields, echo)
	}
	if form.Password != form.ConfirmedPassword {
		return "", common.Fail(common.ErrorValidation, ReasonPasswordsDiffer, echo)
	}
	if !auth.EvaluateUsername(form.Username).OK() {
		return "", common.Fail(common.ErrorValidation, ReasonUsernameRequirements, echo)
	}
	if !auth.EvaluatePassword(form.Password).OK() {
		return "", common.Fail(common.ErrorValidation, ReasonPasswordRequirements, echo)
	}
	if form.Email != "" && !auth.EvaluateEmail(form.Email).OK() {
		return "", common.Fail(common.ErrorValidation, ReasonEmailRequirements, echo)
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Username:       form.Username,
		Email:          form.Email,
		Password:       hash,
		ProfilePicture: form.ProfilePicture,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", common.Fail(common.ErrorValidation, ReasonUsernameTaken, echo)
		}
		return "", fmt.Errorf("error creating user: %w", err)
	}

	return s.sessions.Issue(ctx, user.ID)
}

// Logout revokes the session token. Unknown tokens are ignored.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// ChangeUsername renames the signed-in requester.
func (s *AccountService) ChangeUsername(ctx context.Context, requester *models.User, form ChangeUsernameForm) (string, error) {
	if requester == nil {
		return "", common.Fail(common.ErrorUnauthorized, ReasonUnauthorizedUsername, nil)
	}

	echo := map[string]string{"newUsername": form.NewUsername}

	if err := s.validate.Struct(form); err != nil {
		return "", common.Fail(common.ErrorValidation, ReasonMissingFields, echo)
	}
	if !auth.EvaluateUsername(form.NewUsername).OK() {
		return "", common.Fail(common.ErrorValidation, ReasonUsernameRequirements, echo)
	}

	if _, err := s.repomanager.Users(s.db).UpdateUsername(ctx, requester.ID, form.NewUsername); err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return "", userDoesNotExist(requester.ID, echo)
		case errors.Is(err, common.ErrorAlreadyExists):
			return "", common.Fail(common.ErrorValidation, ReasonUsernameTaken, echo)
		}
		return "", fmt.Errorf("error updating username: %w", err)
	}

	return MessageUsernameChanged, nil
}

// ChangePassword replaces the requester's password after re-verifying the
// old one. Password fields are never echoed back.
func (s *AccountService) ChangePassword(ctx context.Context, requester *models.User, form ChangePasswordForm) (string, error) {
	if requester == nil {
		return "", common.Fail(common.ErrorUnauthorized, ReasonUnauthorizedPassword, nil)
	}

	if err := s.validate.Struct(form); err != nil {
		return "", common.Fail(common.ErrorValidation, ReasonMissingFields, nil)
	}
	if form.NewPassword != form.ConfirmedNewPassword {
		return "", common.Fail(common.ErrorValidation, ReasonNewPasswordsDiffer, nil)
	}
	if !auth.EvaluatePassword(form.NewPassword).OK() {
		return "", common.Fail(common.ErrorValidation, ReasonPasswordRequirements, nil)
	}

	repo := s.repomanager.Users(s.db)

	stored, err := repo.FindByID(ctx, requester.ID, users.FieldPassword)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", userDoesNotExist(requester.ID, nil)
		}
		return "", fmt.Errorf("error searching user: %w", err)
	}
	if !s.hasher.Matches(form.OldPassword, stored.Password) {
		return "", common.Fail(common.ErrorCredentialMismatch, ReasonOldPasswordMismatch, nil)
	}

	hash, err := s.hasher.Hash(form.NewPassword)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	if _, err := repo.UpdatePassword(ctx, requester.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", userDoesNotExist(requester.ID, nil)
		}
		return "", fmt.Errorf("error updating password: %w", err)
	}

	return MessagePasswordChanged, nil
}

// DeleteAccount removes the requester and ends all of their sessions.
func (s *AccountService) DeleteAccount(ctx context.Context, requester *models.User) error {
	if requester == nil {
		return common.Fail(common.ErrorUnauthorized, ReasonUnauthorizedDelete, nil)
	}

	deleted, err := s.repomanager.Users(s.db).Delete(ctx, requester.ID)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if !deleted {
		return userDoesNotExist(requester.ID, nil)
	}

	if err := s.sessions.RevokeAll(ctx, requester.ID); err != nil {
		// The account is gone either way; leftover sessions no longer resolve.
		s.logger.Warn(ctx, "revoking sessions of deleted user", "user_id", requester.ID, "error", err)
	}
	return nil
}
