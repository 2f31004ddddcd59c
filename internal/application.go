package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/M4RKUS28/TicTacToeUltimate/internal/config"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/registry"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/repository"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/repository/storage"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/server"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/service"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/transport/botstream"
	"github.com/M4RKUS28/TicTacToeUltimate/internal/transport/websocket"
)

var ErrUnknownStorage = errors.New("unknown storage backend")

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

	lobbyRepo, closeStorage, err := newLobbyRepository(ctx, conf)
	if err != nil {
		return fmt.Errorf("could not set up lobby storage: %w", err)
	}

	defer func() {
		if err = closeStorage(); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}()

	players := registry.NewPlayerRegistry()
	bots := registry.NewBotRegistry()
	games := service.NewGameStore()

	dispatcher := service.NewBotDispatcher(logger, lobbyRepo, games, bots, players, conf.BotResponseTimeout)
	coordinator := service.NewCoordinator(logger, lobbyRepo, games, players, bots, dispatcher)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := server.StartHTTPServer(ctx, conf.HTTPPort); httpErr != nil {
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, coordinator)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			wsErrCh <- wsErr
		}
	}()

	// run bot stream server
	streamErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting bot stream server", "port", conf.BotStreamPort)
		streamServer := botstream.New(logger, coordinator)
		if streamErr := streamServer.Start(ctx, conf.BotStreamPort); streamErr != nil {
			streamErrCh <- streamErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case err = <-streamErrCh:
		return fmt.Errorf("bot stream server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newLobbyRepository picks the lobby store backend from config.
func newLobbyRepository(ctx context.Context, conf *config.Config) (repository.LobbyRepository, func() error, error) {
	switch conf.Storage {
	case config.StorageRedis:
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewLobbyRepository(redisStorage.Connection), redisStorage.Close, nil

	case config.StorageSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return repository.NewSQLiteLobbyRepository(sqliteStorage.Connection), sqliteStorage.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownStorage, conf.Storage)
	}
}
