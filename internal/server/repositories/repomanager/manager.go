package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/artfeed/internal/dbx"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/posts"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Posts(db dbx.DBTX) posts.Repository
}
