package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/gomoku-backend/internal/config"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository/storage"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
	"github.com/rocketscienceinc/gomoku-backend/transport/rest"
	"github.com/rocketscienceinc/gomoku-backend/transport/tcp"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	eventLogger, err := repository.NewEventLogger(logger, conf.Game.EventLogDir)
	if err != nil {
		return fmt.Errorf("could not create event logger: %w", err)
	}

	archive, closeArchive, err := newArchive(ctx, log, conf)
	if err != nil {
		return fmt.Errorf("could not create game archive: %w", err)
	}
	defer closeArchive()

	room := usecase.NewRoom(logger, conf.Game.Password, eventLogger, archive)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run TCP game server
	gameErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting game server", "addr", conf.Game.GetGameAddr())
		gameServer := tcp.New(logger, room)
		if gameErr := gameServer.Start(ctx, conf.Game.GetGameAddr()); gameErr != nil {
			log.Error("game server error", "error", gameErr)
			gameErrCh <- gameErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-gameErrCh:
		return fmt.Errorf("game server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newArchive builds the configured result archive. Backend "none" disables
// archiving; gameplay never depends on it.
func newArchive(ctx context.Context, log *slog.Logger, conf *config.Config) (repository.GameArchive, func(), error) {
	noop := func() {}

	switch conf.Archive.Backend {
	case "", "none":
		return nil, noop, nil

	case "redis":
		redisStorage, err := storage.New(ctx, conf.Archive.Redis.GetRedisAddr())
		if err != nil {
			return nil, noop, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		closeFn := func() {
			if closeErr := redisStorage.Close(); closeErr != nil {
				log.Error("could not close redis storage", "error", closeErr)
			}
		}

		return repository.NewRedisArchive(redisStorage.Connection), closeFn, nil

	case "sqlite":
		sqliteStorage, err := sqlite.New(conf.Archive.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			return nil, noop, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		closeFn := func() {
			if closeErr := sqliteStorage.Close(); closeErr != nil {
				log.Error("could not close sqlite storage", "error", closeErr)
			}
		}

		return repository.NewSQLiteArchive(sqliteStorage.Connection), closeFn, nil

	default:
		return nil, noop, fmt.Errorf("unknown archive backend: %q", conf.Archive.Backend)
	}
}
