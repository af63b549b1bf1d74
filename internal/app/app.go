// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruckert/canto/internal/adapter/audio/mock"
	"github.com/ruckert/canto/internal/adapter/eventbus"
	"github.com/ruckert/canto/internal/adapter/scanner/tagscan"
	"github.com/ruckert/canto/internal/adapter/store/bolt"
	"github.com/ruckert/canto/internal/api"
	"github.com/ruckert/canto/internal/appstate"
	"github.com/ruckert/canto/internal/bus"
	"github.com/ruckert/canto/internal/config"
	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/logger"
	"github.com/ruckert/canto/internal/ports"
	"github.com/ruckert/canto/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger *slog.Logger
	cfg    config.Config

	// Infrastructure
	eventBus ports.EventBus
	stream   ports.AudioStream

	// Stores
	albumStore    *bolt.Store[domain.Album, *domain.Album]
	trackStore    *bolt.Store[domain.Track, *domain.Track]
	playlistStore *bolt.Store[domain.Playlist, *domain.Playlist]
	state         *appstate.Store

	// Services
	queueService    *service.QueueService
	libraryService  *service.LibraryService
	searchService   *service.SearchService
	playbackService *service.PlaybackService

	// Request surface
	messageBus *bus.Bus
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg config.Config) (*Application, error) {
	app := &Application{cfg: cfg}

	// Step 1: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	app.logger.Info("initializing application",
		slog.String("version", GetVersionInfo().FullString()),
		slog.String("environment", string(cfg.Environment)),
		slog.String("data_dir", cfg.DataDir))

	// Step 2: Prepare the data directory; a fresh run starts from nothing
	if cfg.Environment == config.EnvFresh {
		app.logger.Info("fresh environment, wiping state")
		if err := os.RemoveAll(cfg.DatabaseDir()); err != nil {
			return nil, fmt.Errorf("failed to wipe database dir: %w", err)
		}
		if err := os.Remove(cfg.StateFile()); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to wipe state file: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.DatabaseDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	// Step 3: Create an event bus
	syncBus := eventbus.NewSyncEventBus()
	syncBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus = syncBus

	// Step 4: Open the document stores, one directory per collection
	if err := app.openStores(); err != nil {
		app.closeStores()
		return nil, err
	}

	// Step 5: Load persisted UI state
	app.state = appstate.New(cfg.StateFile(), app.logger.With(slog.String("component", "appstate")))
	if err := app.state.Load(); err != nil {
		// Non-fatal - just log and continue
		app.logger.Warn("failed to load app state", slog.Any("error", err))
	}

	// Step 6: Create the audio stream
	app.stream = mock.NewStream()
	if !cfg.Audio.UseMock {
		// Native audio output is wired here once an output adapter lands;
		// the simulated stream keeps headless runs working either way
		app.logger.Info("no native audio output configured, using simulated stream")
	}

	// Step 7: Create services (with dependency injection)
	app.queueService = service.NewQueueService(
		app.logger.With(slog.String("service", "queue")),
		app.eventBus,
	)

	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("service", "library")),
		app.albumStore,
		app.trackStore,
		app.playlistStore,
		tagscan.NewScanner(app.logger.With(slog.String("component", "scanner"))),
		app.queueService,
		app.eventBus,
	)

	app.searchService = service.NewSearchService(
		app.logger.With(slog.String("service", "search")),
		app.albumStore,
	)

	app.playbackService = service.NewPlaybackService(
		app.logger.With(slog.String("service", "playback")),
		app.stream,
		app.libraryService,
		app.queueService,
		app.eventBus,
	)

	// Step 8: Bind the request surface
	app.messageBus = bus.New(app.logger.With(slog.String("component", "bus")))
	api.New(
		app.logger.With(slog.String("component", "api")),
		app.libraryService,
		app.searchService,
		app.state,
	).Register(app.messageBus)

	app.logger.Info("application initialized",
		slog.Int("messages", len(app.messageBus.Names())))

	return app, nil
}

// openStores opens the three collections under the database dir.
func (a *Application) openStores() error {
	dbDir := a.cfg.DatabaseDir()
	storeLogger := a.logger.With(slog.String("component", "store"))

	var err error
	a.albumStore, err = bolt.New[domain.Album](bolt.Options{
		Dir: filepath.Join(dbDir, "album"), Name: "album", Logger: storeLogger})
	if err != nil {
		return fmt.Errorf("failed to open album store: %w", err)
	}

	a.trackStore, err = bolt.New[domain.Track](bolt.Options{
		Dir: filepath.Join(dbDir, "track"), Name: "track", Logger: storeLogger})
	if err != nil {
		return fmt.Errorf("failed to open track store: %w", err)
	}

	a.playlistStore, err = bolt.New[domain.Playlist](bolt.Options{
		Dir: filepath.Join(dbDir, "playlist"), Name: "playlist", Logger: storeLogger})
	if err != nil {
		return fmt.Errorf("failed to open playlist store: %w", err)
	}

	return nil
}

// closeStores closes whichever stores were opened.
func (a *Application) closeStores() {
	if a.albumStore != nil {
		if err := a.albumStore.Close(); err != nil {
			a.logger.Warn("failed to close album store", slog.Any("error", err))
		}
	}
	if a.trackStore != nil {
		if err := a.trackStore.Close(); err != nil {
			a.logger.Warn("failed to close track store", slog.Any("error", err))
		}
	}
	if a.playlistStore != nil {
		if err := a.playlistStore.Close(); err != nil {
			a.logger.Warn("failed to close playlist store", slog.Any("error", err))
		}
	}
}

// MessageBus exposes the request surface for the transport layer.
func (a *Application) MessageBus() *bus.Bus {
	return a.messageBus
}

// EventBus exposes the event stream for the transport layer.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Playback exposes the player for the transport layer.
func (a *Application) Playback() *service.PlaybackService {
	return a.playbackService
}

// Shutdown gracefully shuts down the application.
// Services stop in reverse order of creation.
func (a *Application) Shutdown() {
	a.logger.Info("shutting down application")

	if a.playbackService != nil {
		if err := a.playbackService.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown playback service", slog.Any("error", err))
		}
	}

	a.closeStores()

	if err := a.eventBus.Close(); err != nil {
		a.logger.Warn("failed to close event bus", slog.Any("error", err))
	}

	a.logger.Info("shutdown complete")
}
