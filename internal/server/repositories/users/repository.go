// Package users declares the repository contract for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/artfeed/internal/server/models"
)

// Repository is the persistence contract for user accounts.
type Repository interface {
	// FindByName returns the user with the exact username or common.ErrorNotFound.
	FindByName(ctx context.Context, name string) (*models.User, error)

	// FindByID returns the user with the given id. When fields are given only
	// those columns are loaded; the rest of the model stays zero.
	FindByID(ctx context.Context, id string, fields ...Field) (*models.User, error)

	// Create inserts the user and fills in ID and CreatedAt. A taken username
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// UpdateUsername renames the user and returns the stored name.
	UpdateUsername(ctx context.Context, id string, name string) (string, error)

	// UpdatePassword replaces the stored password hash and returns the user id.
	UpdatePassword(ctx context.Context, id string, hash string) (string, error)

	// Delete removes the user. It reports false when no row matched.
	Delete(ctx context.Context, id string) (bool, error)
}
