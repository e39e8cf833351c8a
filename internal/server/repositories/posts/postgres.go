package posts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/dbx"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
)

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectPosts = `
	SELECT p.id, p.description, p.likes, p.created_at, u.id, u.username,
		COALESCE((SELECT json_agg(i.url ORDER BY i.position) FROM post_images i WHERE i.post_id = p.id), '[]'),
		COALESCE((SELECT json_agg(t.name ORDER BY t.name) FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id), '[]'),
		COALESCE((SELECT json_agg(a.name ORDER BY a.name) FROM post_artists pa JOIN artists a ON a.id = pa.artist_id WHERE pa.post_id = p.id), '[]')
	FROM posts p
	JOIN users u ON u.id = p.author_id
`

var orderColumns = map[OrderBy]string{
	OrderByCreatedAt: "p.created_at",
	OrderByLikes:     "p.likes",
}

// Create must run inside a transaction so that a failed join insert does
// not leave a half-linked post behind.
func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (author_id, description)
		VALUES ($1, $2)
		RETURNING id, likes, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, post.Author.ID, post.Description).
		Scan(&post.ID, &post.Likes, &post.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	for i, url := range post.ImageURLs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO post_images (post_id, position, url) VALUES ($1, $2, $3)`,
			post.ID, i, url); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}

	var err error
	if post.Tags, err = r.connectOrCreate(ctx, post.ID, post.Tags, "tags", "post_tags", "tag_id"); err != nil {
		return nil, err
	}
	if post.Artists, err = r.connectOrCreate(ctx, post.ID, post.Artists, "artists", "post_artists", "artist_id"); err != nil {
		return nil, err
	}

	return post, nil
}

// connectOrCreate links postID to every distinct name in names, inserting
// names missing from table. Table and column names are constants.
func (r *PostgresRepository) connectOrCreate(ctx context.Context, postID string, names []string, table, joinTable, joinColumn string) ([]string, error) {
	query := fmt.Sprintf(`
		WITH n AS (
			INSERT INTO %[1]s (name) VALUES ($2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		)
		INSERT INTO %[2]s (post_id, %[3]s) SELECT $1, id FROM n
		ON CONFLICT DO NOTHING
	`, table, joinTable, joinColumn)

	seen := make(map[string]struct{}, len(names))
	linked := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		if _, err := r.db.ExecContext(ctx, query, postID, name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		linked = append(linked, name)
	}
	return linked, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, selectPosts+` WHERE p.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	result, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, common.ErrorNotFound
	}
	return result[0], nil
}

func (r *PostgresRepository) FindPage(ctx context.Context, page, limit int, orderBy OrderBy, ascending bool) ([]*models.Post, error) {
	column, ok := orderColumns[orderBy]
	if !ok {
		return nil, fmt.Errorf("%w: cannot order posts by %q", common.ErrorValidation, orderBy)
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	query := selectPosts + fmt.Sprintf(` ORDER BY %s %s, p.id LIMIT $1 OFFSET $2`, column, direction)
	rows, err := r.db.QueryContext(ctx, query, limit, page*limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanPosts(rows)
}

func (r *PostgresRepository) FindByAuthor(ctx context.Context, page, limit int, authorID string) ([]*models.Post, error) {
	query := selectPosts + ` WHERE p.author_id = $1 ORDER BY p.created_at DESC, p.id LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, authorID, limit, page*limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanPosts(rows)
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, postID, authorID string) (bool, error) {
	if postID == "" || authorID == "" {
		return false, nil
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND author_id = $2`, postID, authorID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	defer rows.Close()

	var result []*models.Post
	for rows.Next() {
		var (
			p                     models.Post
			images, tags, artists []byte
		)
		if err := rows.Scan(
			&p.ID, &p.Description, &p.Likes, &p.CreatedAt, &p.Author.ID, &p.Author.Username,
			&images, &tags, &artists,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := errors.Join(
			json.Unmarshal(images, &p.ImageURLs),
			json.Unmarshal(tags, &p.Tags),
			json.Unmarshal(artists, &p.Artists),
		); err != nil {
			return nil, fmt.Errorf("decode post %s: %w", p.ID, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
