// Package server initializes and runs the application: config, logger,
// database, migrations, services and the HTTP endpoint, with graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sstoianov/liblend/internal/logging"
	"github.com/sstoianov/liblend/internal/opaqueid"
	"github.com/sstoianov/liblend/internal/server/config"
	"github.com/sstoianov/liblend/internal/server/httpapi"
	"github.com/sstoianov/liblend/internal/server/repositories/repomanager"
	"github.com/sstoianov/liblend/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	idKey, err := hex.DecodeString(cfg.IDKey)
	if err != nil {
		return nil, fmt.Errorf("id key is not valid hex: %w", err)
	}
	codec, err := opaqueid.NewCodec(idKey)
	if err != nil {
		return nil, fmt.Errorf("id key init error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	users := services.NewUserService(db, rm, codec, cfg)
	libraries := services.NewLibraryService(db, rm, codec)
	books := services.NewBookService(db, rm, codec, libraries)
	lendings := services.NewLendingService(db, rm, codec)
	backup := services.NewBackupService(cfg)

	srv := httpapi.NewServer(users, libraries, books, lendings, backup, cfg, logger)

	app := &App{config: cfg, logger: logger, db: db, server: srv}

	if err := rm.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	httpServer := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "server error", "error", err)
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
