// Package server initializes and runs the Photofeed backend.
// It wires the database, object storage capability issuer, and the
// catalog/upload services, and starts the HTTP server with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/morlov/photofeed/internal/logging"
	"github.com/morlov/photofeed/internal/server/config"
	"github.com/morlov/photofeed/internal/server/cursor"
	"github.com/morlov/photofeed/internal/server/httpapi"
	"github.com/morlov/photofeed/internal/server/repositories/repomanager"
	"github.com/morlov/photofeed/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	upload  *services.UploadService
	catalog *services.CatalogService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	codec := cursor.NewCodec([]byte(c.SecretKey))
	issuer := services.NewS3CapabilityIssuer(c)
	sampler := services.NewRandomSampler(rm.Photos(db))

	us := services.NewUploadService(db, rm, issuer, c, logger)
	cs := services.NewCatalogService(db, rm, codec, sampler, c, logger)

	return &App{config: c, logger: logger, db: db, upload: us, catalog: cs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.upload, app.catalog)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
