package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/marquee/internal/api"
	"github.com/vadimtrunov/marquee/internal/config"
	"github.com/vadimtrunov/marquee/internal/frontend/telegram"
)

// newBotCmd returns the "bot" subcommand for running the Telegram bot.
func newBotCmd() *cobra.Command {
	var withAPI bool
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Start the Telegram bot",
		Long: "Start the Marquee Telegram bot: browse popular movies, search by title,\n" +
			"open trailers and keep favorites from a chat.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBot(withAPI)
		},
	}
	cmd.Flags().BoolVar(&withAPI, "with-api", false, "also serve the JSON API on server.port")
	return cmd
}

// runBot initializes services and starts the Telegram bot, optionally with the API server.
func runBot(withAPI bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Telegram == nil {
		return errors.New(
			"telegram configuration is required: set telegram.bot_token in config or MARQUEE_TELEGRAM_BOT_TOKEN env var",
		)
	}

	logger := config.SetupLogger(cfg.App.LogLevel, config.LogWriter(cfg.App, false))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := initServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	bot, err := telegram.New(
		cfg.Telegram.BotToken,
		cfg.Telegram.AllowedUserIDs,
		svc.loader,
		svc.favorites,
		logger,
	)
	if err != nil {
		return err
	}

	apiErrCh := startAPIIfRequested(ctx, withAPI, cfg, svc, logger)

	logger.Info("telegram bot starting")
	botErr := bot.Start(ctx)
	cancel() // Unblock the API server goroutine waiting on ctx.

	// Surface the API error if the bot exited cleanly.
	if apiErr := <-apiErrCh; apiErr != nil && !errors.Is(apiErr, context.Canceled) {
		if botErr == nil {
			return apiErr
		}
		logger.Error("api server error", slog.String("error", apiErr.Error()))
	}
	return botErr
}

// startAPIIfRequested launches the API server in the background.
// Returns a channel that will receive the server error (or be closed if the API is disabled).
func startAPIIfRequested(
	ctx context.Context, enabled bool, cfg *config.Config, svc *services, logger *slog.Logger,
) <-chan error {
	errCh := make(chan error, 1)
	if !enabled {
		close(errCh)
		return errCh
	}

	srv := api.NewServer(api.Options{
		Port:              cfg.Server.Port,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}, svc.loader, svc.resolver, svc.favorites, logger)

	go func() {
		err := srv.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("api server stopped", slog.String("error", err.Error()))
		}
		errCh <- err
	}()
	return errCh
}
