// Package server wires the artfeed HTTP server: it opens the database, runs
// migrations, selects the session backend and serves until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/artfeed/internal/cryptox"
	"github.com/dmitrijs2005/artfeed/internal/logging"
	"github.com/dmitrijs2005/artfeed/internal/server/config"
	"github.com/dmitrijs2005/artfeed/internal/server/httpapi"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/artfeed/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/artfeed/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  redis.UniversalClient
	http   *httpapi.Server
}

// sessionStore picks the session backend named by the configuration. The
// returned client is nil for the Postgres backend.
func sessionStore(c *config.Config, db *sql.DB, m repomanager.RepositoryManager) (sessions.Repository, redis.UniversalClient) {
	if c.SessionBackend == config.SessionBackendRedis {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{c.RedisAddr}})
		return sessions.NewRedisRepository(client), client
	}
	return m.Sessions(db), nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, rc := sessionStore(c, db, rm)
	if rc != nil {
		if err := rc.Ping(ctx).Err(); err != nil {
			db.Close()
			rc.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
	}

	ss := services.NewSessionService(db, rm, store, c, logger)
	as := services.NewAccountService(db, rm, ss, cryptox.NewPasswordHasher(cryptox.DefaultParams), logger)
	images := services.NewS3ImageStore(c)
	ps := services.NewPostService(db, rm, images, logger)

	hs := httpapi.NewServer(c.HTTPAddr, c.CookieSecure, c.AllowedOrigins, logger, as, ss, ps, images, db)

	logger.Info(ctx, "App initialized", "session_backend", c.SessionBackend)

	return &App{config: c, logger: logger, db: db, redis: rc, http: hs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the server fails, then releases the
// database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
