// Package server initializes and runs the portal server. It selects the
// storage backend from configuration, wires the auth service and its
// token stores, runs schema migrations, and handles graceful shutdown.
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

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/helioview/portal/internal/logging"
	"github.com/helioview/portal/internal/server/config"
	"github.com/helioview/portal/internal/server/httpapi"
	"github.com/helioview/portal/internal/server/mail"
	"github.com/helioview/portal/internal/server/repositories/repomanager"
	"github.com/helioview/portal/internal/server/repositories/tokens"
	"github.com/helioview/portal/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	authService *services.AuthService
	sweeper     *tokens.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	var (
		rm  repomanager.RepositoryManager
		db  *sql.DB
		err error
	)

	if c.DatabaseDSN != "" {
		rm, err = repomanager.NewPostgresRepositoryManager(c.SessionTokenTTL, c.ResetTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("repository init error: %w", err)
		}
		db, err = sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := rm.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
	} else {
		rm, err = repomanager.NewInMemoryRepositoryManager(c.SessionTokenTTL, c.ResetTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("repository init error: %w", err)
		}
		logger.Warn(ctx, "no database DSN configured, using in-memory stores")
	}

	var mailer mail.Mailer
	if c.SMTPServer != "" {
		mailer = &mail.SMTPMailer{
			Server:   c.SMTPServer,
			Port:     c.SMTPPort,
			From:     c.SMTPFrom,
			User:     c.SMTPUser,
			Password: c.SMTPPassword,
		}
	} else {
		mailer = &mail.LogMailer{Logger: logger}
		logger.Warn(ctx, "no SMTP relay configured, reset links go to the log")
	}

	sessionRepo := rm.SessionTokens(db)
	resetRepo := rm.ResetTokens(db)

	authService := services.NewAuthService(
		rm.Users(db), sessionRepo, resetRepo, mailer, logger, c.ResetBaseURL)

	sweeper, err := tokens.NewSweeper(c.SweepSchedule, logger, sessionRepo, resetRepo)
	if err != nil {
		return nil, fmt.Errorf("sweeper init error: %w", err)
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		authService: authService,
		sweeper:     sweeper,
	}, nil
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

	s, err := httpapi.NewServer(
		app.config.EndpointAddrHTTP, app.authService, app.logger, app.config.SessionTokenTTL)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	app.sweeper.Start()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.sweeper.Stop()

	// Reset deliveries launched before shutdown finish before we exit.
	app.authService.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}
}
