package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/config"
	"github.com/vadimtrunov/marquee/internal/favorites"
	"github.com/vadimtrunov/marquee/internal/httpclient"
	"github.com/vadimtrunov/marquee/internal/storage"
	"github.com/vadimtrunov/marquee/internal/tmdb"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// Lipgloss styles used across commands.
var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	styleStar    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow

	styleTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	styleCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true) // cyan bold

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("5")).
			MarginBottom(1)
)

// loadConfig loads and validates the configuration file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// services bundles the catalog pipeline and the favorites store.
type services struct {
	tmdb      *tmdb.Client
	resolver  *trailer.Resolver
	loader    *catalog.Loader
	storage   storage.Storage
	favorites *favorites.Store
}

// initServices wires the TMDb client, trailer resolver, catalog loader and
// favorites store from the configuration.
func initServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services, error) {
	client := tmdb.New(tmdb.Options{
		BaseURL:  cfg.TMDb.BaseURL,
		APIKey:   cfg.TMDb.APIKey,
		Language: cfg.TMDb.Language,
		VideoTTL: cfg.TMDb.VideoCacheTTL,
		HTTP: httpclient.Config{
			Timeout:   cfg.TMDb.Timeout,
			UserAgent: "marquee/" + version,
		},
	}, logger)
	logger.Info("TMDb client initialized",
		slog.String("url", sanitizeURL(cfg.TMDb.BaseURL)),
		slog.String("language", cfg.TMDb.Language),
	)

	resolver := trailer.NewResolver(client, logger)
	loader := catalog.NewLoader(client, resolver, cfg.Catalog.TrailerWorkers, logger)

	st, err := storage.Open(ctx, cfg.Storage.Backend, cfg.Storage.Path, cfg.App.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	favs, err := favorites.Load(ctx, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	logger.Info("storage initialized", slog.String("backend", cfg.Storage.Backend))

	return &services{
		tmdb:      client,
		resolver:  resolver,
		loader:    loader,
		storage:   st,
		favorites: favs,
	}, nil
}

// Close releases the storage backend.
func (s *services) Close() error {
	return s.storage.Close()
}

// initFavorites opens only the storage and favorites store, for commands that
// never talk to TMDb.
func initFavorites(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*favorites.Store, func() error, error) {
	st, err := storage.Open(ctx, cfg.Storage.Backend, cfg.Storage.Path, cfg.App.DataDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	favs, err := favorites.Load(ctx, st, logger)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("load favorites: %w", err), st.Close())
	}
	return favs, st.Close, nil
}

// sanitizeURL strips credentials, query params, and fragment from a URL for safe logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return "<redacted>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
