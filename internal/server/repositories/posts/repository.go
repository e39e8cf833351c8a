// Package posts declares the repository contract for posts and provides a
// PostgreSQL implementation.
package posts

import (
	"context"

	"github.com/dmitrijs2005/artfeed/internal/server/models"
)

// OrderBy names a column a feed page can be sorted by.
type OrderBy string

const (
	OrderByCreatedAt OrderBy = "createdAt"
	OrderByLikes     OrderBy = "likes"
)

// ParseOrderBy accepts only the sortable columns.
func ParseOrderBy(s string) (OrderBy, bool) {
	switch OrderBy(s) {
	case OrderByCreatedAt, OrderByLikes:
		return OrderBy(s), true
	}
	return "", false
}

type Repository interface {
	// Create inserts the post with its images, connecting existing tags and
	// artists by name and creating missing ones. Run it inside a transaction.
	Create(ctx context.Context, post *models.Post) (*models.Post, error)

	// FindByID returns common.ErrorNotFound when the post does not exist.
	FindByID(ctx context.Context, id string) (*models.Post, error)

	// FindPage returns page (0-based) of at most limit posts.
	FindPage(ctx context.Context, page, limit int, orderBy OrderBy, ascending bool) ([]*models.Post, error)

	// FindByAuthor returns page of the author's posts, newest first.
	FindByAuthor(ctx context.Context, page, limit int, authorID string) ([]*models.Post, error)

	// DeleteByID deletes the post only if authorID wrote it. It reports
	// whether a row was removed; empty ids never reach the database.
	DeleteByID(ctx context.Context, postID, authorID string) (bool, error)
}
