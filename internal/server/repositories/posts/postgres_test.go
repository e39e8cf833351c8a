package posts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/dmitrijs2005/artfeed/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var postColumns = []string{"id", "description", "likes", "created_at", "author_id", "username", "images", "tags", "artists"}

func TestParseOrderBy(t *testing.T) {
	o, ok := ParseOrderBy("likes")
	assert.True(t, ok)
	assert.Equal(t, OrderByLikes, o)

	o, ok = ParseOrderBy("createdAt")
	assert.True(t, ok)
	assert.Equal(t, OrderByCreatedAt, o)

	_, ok = ParseOrderBy("password")
	assert.False(t, ok)
}

func TestCreate_ConnectsOrCreatesTagsAndArtists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+posts\s*\(author_id,\s*description\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*likes,\s*created_at\s*$`).
		WithArgs("u1", "sunset").
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes", "created_at"}).AddRow("p1", 0, created))
	mock.ExpectExec(`^INSERT INTO post_images`).
		WithArgs("p1", 0, "/images/a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^INSERT INTO post_images`).
		WithArgs("p1", 1, "/images/b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO tags .*ON CONFLICT \(name\).*INSERT INTO post_tags \(post_id, tag_id\)`).
		WithArgs("p1", "nature").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO tags .*INSERT INTO post_tags`).
		WithArgs("p1", "sky").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO artists .*INSERT INTO post_artists \(post_id, artist_id\)`).
		WithArgs("p1", "monet").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), &models.Post{
		Description: "sunset",
		Author:      models.PublicUser{ID: "u1"},
		ImageURLs:   []string{"/images/a", "/images/b"},
		Tags:        []string{"nature", "sky", "nature", ""},
		Artists:     []string{"monet"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, []string{"nature", "sky"}, got.Tags)
	assert.Equal(t, []string{"monet"}, got.Artists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_JoinInsertFails(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+posts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes", "created_at"}).AddRow("p1", 0, time.Now()))
	mock.ExpectExec(`INSERT INTO tags`).
		WillReturnError(errors.New("boom"))

	_, err := repo.Create(context.Background(), &models.Post{
		Author: models.PublicUser{ID: "u1"},
		Tags:   []string{"nature"},
	})
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByID(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`(?s)FROM posts p\s+JOIN users u ON u.id = p.author_id\s+WHERE p.id = \$1$`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows(postColumns).
				AddRow("p1", "sunset", 3, created, "u1", "alice", `["/images/a"]`, `["nature","sky"]`, `[]`))

		got, err := repo.FindByID(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, &models.Post{
			ID:          "p1",
			Description: "sunset",
			Author:      models.PublicUser{ID: "u1", Username: "alice"},
			ImageURLs:   []string{"/images/a"},
			Tags:        []string{"nature", "sky"},
			Artists:     []string{},
			Likes:       3,
			CreatedAt:   created,
		}, got)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`WHERE p.id = \$1`).
			WithArgs("p9").
			WillReturnRows(sqlmock.NewRows(postColumns))

		_, err := repo.FindByID(context.Background(), "p9")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("corrupt aggregate", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`WHERE p.id = \$1`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows(postColumns).
				AddRow("p1", "", 0, created, "u1", "alice", `not json`, `[]`, `[]`))

		_, err := repo.FindByID(context.Background(), "p1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode post p1")
	})
}

func TestFindPage(t *testing.T) {
	tests := []struct {
		name      string
		orderBy   OrderBy
		ascending bool
		order     string
	}{
		{name: "newest first", orderBy: OrderByCreatedAt, order: `ORDER BY p\.created_at DESC, p\.id`},
		{name: "least liked first", orderBy: OrderByLikes, ascending: true, order: `ORDER BY p\.likes ASC, p\.id`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(tt.order+` LIMIT \$1 OFFSET \$2$`).
				WithArgs(25, 50).
				WillReturnRows(sqlmock.NewRows(postColumns).
					AddRow("p1", "a", 1, time.Now(), "u1", "alice", `[]`, `[]`, `[]`).
					AddRow("p2", "b", 2, time.Now(), "u2", "bob", `[]`, `[]`, `[]`))

			got, err := repo.FindPage(context.Background(), 2, 25, tt.orderBy, tt.ascending)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "p1", got[0].ID)
			assert.Equal(t, "bob", got[1].Author.Username)
		})
	}

	t.Run("rejects unknown column", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		_, err := repo.FindPage(context.Background(), 0, 25, OrderBy("password"), false)
		assert.ErrorIs(t, err, common.ErrorValidation)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindByAuthor(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE p\.author_id = \$1 ORDER BY p\.created_at DESC, p\.id LIMIT \$2 OFFSET \$3$`).
		WithArgs("u1", 25, 0).
		WillReturnRows(sqlmock.NewRows(postColumns))

	got, err := repo.FindByAuthor(context.Background(), 0, 25, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteByID_Idempotent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE FROM posts WHERE id = \$1 AND author_id = \$2$`
	mock.ExpectExec(q).WithArgs("p1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p1", "u1").WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteByID(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByID_EmptyIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	for _, ids := range [][2]string{{"", "u1"}, {"p1", ""}, {"", ""}} {
		deleted, err := repo.DeleteByID(context.Background(), ids[0], ids[1])
		require.NoError(t, err)
		assert.False(t, deleted)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM posts`).WillReturnError(errors.New("db err"))

	_, err := repo.DeleteByID(context.Background(), "p1", "u1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
