// Package sessions declares the server-side repository contract for login
// sessions and provides PostgreSQL and Redis implementations.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/artfeed/internal/server/models"
)

// Repository stores opaque session tokens bound to a user.
type Repository interface {
	// Create stores a new session for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a session by its token. Implementations return
	// common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by its token. Deleting a non-existent
	// token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every session of the user.
	DeleteByUser(ctx context.Context, userID string) error
}
