package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/marquee/internal/api"
	"github.com/vadimtrunov/marquee/internal/config"
)

// newServeCmd returns the "serve" subcommand for the JSON API.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and favorites as a JSON API",
		Long: "Start an HTTP server exposing popular movies, title search, trailers\n" +
			"and favorites as JSON for a browser front end.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// runServe initializes services and runs the API server until interrupted.
func runServe(port int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger := config.SetupLogger(cfg.App.LogLevel, config.LogWriter(cfg.App, false))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := initServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srv := api.NewServer(api.Options{
		Port:              cfg.Server.Port,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}, svc.loader, svc.resolver, svc.favorites, logger)

	return srv.Start(ctx)
}
