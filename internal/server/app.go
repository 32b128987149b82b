// Package server initializes and runs the chat server application.
// It selects the credential backend, wires the router to the TCP listener,
// and handles graceful shutdown.
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

	"github.com/awnumar/memguard"

	"github.com/dmitrijs2005/phantomchat/internal/logging"
	"github.com/dmitrijs2005/phantomchat/internal/server/config"
	"github.com/dmitrijs2005/phantomchat/internal/server/router"
	"github.com/dmitrijs2005/phantomchat/internal/server/session"
	"github.com/dmitrijs2005/phantomchat/internal/server/tcp"
	"github.com/dmitrijs2005/phantomchat/internal/server/users"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	router      *router.Router
	db          *sql.DB
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	var repo users.Repository
	var db *sql.DB

	if c.DatabaseDSN != "" {
		conn, err := users.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		db = conn
		repo = users.NewPostgresRepository(conn)
	} else {
		fileRepo, err := users.NewFileRepository(c.UsersFile)
		if err != nil {
			return nil, fmt.Errorf("credential file init error: %w", err)
		}
		repo = fileRepo
	}

	us := users.NewService(repo)
	rt := router.New(logger)

	return &App{config: c, logger: logger, userService: us, router: rt, db: db}, nil
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

func (app *App) startTCPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := tcp.NewServer(app.config.EndpointAddr, app.logger, app.userService, app.router, session.Options{
		MaxAuthAttempts: app.config.MaxAuthAttempts,
		ReadTimeout:     app.config.ReadTimeout,
	})

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
		app.startTCPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}

	// Wipes every session key still resident in locked memory.
	memguard.Purge()
}
