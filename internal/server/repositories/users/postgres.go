// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/dbx"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, password, profile_picture)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, nullString(user.Email), user.Password, nullString(user.ProfilePicture)).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) (*models.User, error) {
	query :=
		`SELECT id, username, password FROM users
		 WHERE username = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&user.ID, &user.Username, &user.Password)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string, fields ...Field) (*models.User, error) {
	if len(fields) == 0 {
		fields = allFields
	}

	user := &models.User{}
	columns := make([]string, 0, len(fields))
	dest := make([]any, 0, len(fields))
	for _, f := range fields {
		t := f.target(user)
		if t == nil {
			return nil, fmt.Errorf("unknown user field %q", f)
		}
		if f == FieldEmail || f == FieldProfilePicture {
			columns = append(columns, "COALESCE("+string(f)+", '')")
		} else {
			columns = append(columns, string(f))
		}
		dest = append(dest, t)
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM users WHERE id = $1"

	if err := r.db.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateUsername(ctx context.Context, id string, name string) (string, error) {
	query :=
		`UPDATE users SET username = $2
		 WHERE id = $1
		 RETURNING username
		 `

	var stored string
	if err := r.db.QueryRowContext(ctx, query, id, name).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return "", common.ErrorAlreadyExists
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return stored, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash string) (string, error) {
	query :=
		`UPDATE users SET password = $2
		 WHERE id = $1
		 RETURNING id
		 `

	var stored string
	if err := r.db.QueryRowContext(ctx, query, id, hash).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return stored, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
