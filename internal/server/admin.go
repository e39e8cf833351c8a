package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/dmitrijs2005/artfeed/internal/cryptox"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/config"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/artfeed/internal/server/services"
)

// NewAdmin builds the account maintenance service used by artfeedctl over
// the same database and session backend as the server. Call the returned
// func to release connections.
func NewAdmin(ctx context.Context, c *config.Config) (*services.AdminService, func(), error) {
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	store, rc := sessionStore(c, db, rm)
	closeFn := func() {
		if rc != nil {
			rc.Close()
		}
		db.Close()
	}

	ss := services.NewSessionService(db, rm, store, c, logging.NewJSON(os.Stderr, c.LogLevel))
	return services.NewAdminService(db, rm, ss, cryptox.NewPasswordHasher(cryptox.DefaultParams)), closeFn, nil
}
