// Package app wires adapters and services into a runnable MoodMix instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/adapters/ollama"
	"github.com/ewilliams-labs/moodmix/backend/internal/adapters/rest"
	"github.com/ewilliams-labs/moodmix/backend/internal/adapters/spotify"
	"github.com/ewilliams-labs/moodmix/backend/internal/adapters/sqlite"
	"github.com/ewilliams-labs/moodmix/backend/internal/config"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/services"
	"github.com/ewilliams-labs/moodmix/backend/internal/worker"
)

// App owns the long-lived components. Close releases them.
type App struct {
	Orchestrator *services.Orchestrator
	Planner      *services.MoodPlanner
	Builder      *services.PlaylistBuilder
	Store        *sqlite.Adapter

	pool   *worker.Pool
	logger *log.Logger
}

// New connects to Spotify and Ollama using cfg and assembles the app.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if !cfg.HasSpotifyCredentials() {
		return nil, errors.New("app: SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_REFRESH_TOKEN are required")
	}
	catalog, err := spotify.NewAuthenticatedClient(ctx, spotify.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		TokenURL:     cfg.Spotify.TokenURL,
	}, cfg.Spotify.BaseURL,
		spotify.WithRetry(cfg.Spotify.MaxRetries, cfg.Spotify.RetryBackoff()),
		spotify.WithRateLimit(cfg.Spotify.RequestsPerSecond),
		spotify.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	model := ollama.NewClient(ollama.Config{
		BaseURL:     cfg.Ollama.Host,
		Model:       cfg.Ollama.Model,
		Temperature: cfg.Ollama.Temperature,
		Timeout:     cfg.Ollama.Timeout(),
	})

	return Assemble(cfg, catalog, model, logger)
}

// Assemble builds the app over an already constructed catalog and model.
// It opens the database and starts the sync workers.
func Assemble(cfg *config.Config, catalog ports.Catalog, model ports.ChatModel, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	store, err := sqlite.NewAdapter(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("app: failed to initialize database: %w", err)
	}

	planner := services.NewMoodPlanner(model, logger)
	builder := services.NewPlaylistBuilder(services.BuilderDeps{
		Library:  catalog,
		Search:   catalog,
		Artists:  catalog,
		Profile:  catalog,
		Selector: services.NewSelectorAdvisor(model, logger),
	}, services.BuilderConfig{
		MinTrackPop:        cfg.Builder.MinTrackPop,
		MinArtistPop:       cfg.Builder.MinArtistPop,
		LibraryCap:         cfg.Builder.LibraryCap,
		SearchLimit:        cfg.Builder.SearchLimit,
		MaxBackfillQueries: cfg.Builder.MaxBackfillQueries,
	}, logger)

	pool := worker.NewPool(catalog, store, cfg.Worker.QueueSize, logger)
	pool.Start(cfg.Worker.Workers)

	orch := services.NewOrchestrator(services.OrchestratorDeps{
		Planner:   planner,
		Builder:   builder,
		Remote:    catalog,
		Repo:      store,
		Leases:    store,
		Sync:      pool,
		Refresher: pool,
	}, services.OrchestratorConfig{
		LeaseTTL:      cfg.Playlists.LeaseTTL(),
		HistoryDays:   cfg.Playlists.HistoryDays,
		CacheTTL:      cfg.Playlists.CacheTTL(),
		BuildCooldown: cfg.Playlists.BuildCooldown(),
	}, logger)

	return &App{
		Orchestrator: orch,
		Planner:      planner,
		Builder:      builder,
		Store:        store,
		pool:         pool,
		logger:       logger,
	}, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return rest.NewHandler(a.Orchestrator, a.logger)
}

// Close drains the sync queue and closes the database.
func (a *App) Close() error {
	a.pool.Stop()
	return a.Store.Close()
}
