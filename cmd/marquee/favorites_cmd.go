package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/marquee/internal/config"
	"github.com/vadimtrunov/marquee/internal/core"
)

// newFavoritesCmd returns the "favorites" subcommand group.
func newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite movies",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorite movie ids",
			RunE: func(_ *cobra.Command, _ []string) error {
				return withFavorites(func(_ context.Context, favs core.FavoritesStore) error {
					printFavorites(os.Stdout, favs.IDs())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add [movie-id]",
			Short: "Mark a movie as favorite",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseMovieID(args[0])
				if err != nil {
					return err
				}
				return withFavorites(func(ctx context.Context, favs core.FavoritesStore) error {
					if err := favs.Add(ctx, id); err != nil {
						return fmt.Errorf("add favorite: %w", err)
					}
					fmt.Println(styleSuccess.Render(fmt.Sprintf("★ Movie %d added to favorites", id)))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove [movie-id]",
			Short: "Remove a movie from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				id, err := parseMovieID(args[0])
				if err != nil {
					return err
				}
				return withFavorites(func(ctx context.Context, favs core.FavoritesStore) error {
					if err := favs.Remove(ctx, id); err != nil {
						return fmt.Errorf("remove favorite: %w", err)
					}
					fmt.Println(styleSuccess.Render(fmt.Sprintf("☆ Movie %d removed from favorites", id)))
					return nil
				})
			},
		},
	)
	return cmd
}

// withFavorites opens the favorites store, runs fn and closes the store.
func withFavorites(fn func(ctx context.Context, favs core.FavoritesStore) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := config.SetupLogger(cfg.App.LogLevel, config.LogWriter(cfg.App, false))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	favs, closeStore, err := initFavorites(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	return fn(ctx, favs)
}

func printFavorites(w io.Writer, ids []int) {
	if len(ids) == 0 {
		fmt.Fprintln(w, styleDim.Render("No favorites yet."))
		return
	}
	fmt.Fprintln(w, styleHeader.Render("Favorites"))
	for _, id := range ids {
		fmt.Fprintf(w, "%s %d\n", styleStar.Render("★"), id)
	}
}

// parseMovieID parses a positive TMDb movie id.
func parseMovieID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q: must be a positive integer", raw)
	}
	return id, nil
}
