package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/marquee/internal/browse"
	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/config"
	"github.com/vadimtrunov/marquee/internal/core"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// loadFunc performs one catalog load.
type loadFunc func(ctx context.Context, loader core.CatalogLoader) (*catalog.Page, error)

func newPopularCmd() *cobra.Command {
	var favoritesOnly bool
	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List popular movies",
		Long:  "Print the first page of currently popular movies with their trailers.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runListing(func(ctx context.Context, loader core.CatalogLoader) (*catalog.Page, error) {
				return loader.LoadPopular(ctx)
			}, favoritesOnly)
		},
	}
	cmd.Flags().BoolVar(&favoritesOnly, "favorites", false, "show only favorite movies")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var favoritesOnly bool
	cmd := &cobra.Command{
		Use:   "search [title]",
		Short: "Search movies by title",
		Long:  "Print the first page of movies matching a title, with their trailers.",
		Example: `  marquee search dune
  marquee search "the matrix" --favorites`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runListing(func(ctx context.Context, loader core.CatalogLoader) (*catalog.Page, error) {
				return loader.SearchByTitle(ctx, query)
			}, favoritesOnly)
		},
	}
	cmd.Flags().BoolVar(&favoritesOnly, "favorites", false, "show only favorite movies")
	return cmd
}

// runListing loads one page behind a spinner and prints it as cards.
func runListing(load loadFunc, favoritesOnly bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := config.SetupLogger(cfg.App.LogLevel, config.LogWriter(cfg.App, false))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := initServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	state := browse.New(svc.favorites)
	state.SetFavoritesOnly(favoritesOnly)

	p := tea.NewProgram(newListingModel(ctx, svc.loader, load, state))
	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("run listing: %w", err)
	}

	lm, ok := m.(listingModel)
	if !ok {
		return fmt.Errorf("unexpected model type from tea program")
	}
	if errors.Is(lm.err, catalog.ErrEmptyQuery) {
		return errors.New("search title must not be blank")
	}
	return lm.err
}

// listingResultMsg carries the loaded page back to the TUI.
type listingResultMsg struct {
	page *catalog.Page
	err  error
}

type listingModel struct {
	ctx     context.Context
	loader  core.CatalogLoader
	load    loadFunc
	state   *browse.State
	spinner spinner.Model
	err     error
	done    bool
}

func newListingModel(ctx context.Context, loader core.CatalogLoader, load loadFunc, state *browse.State) listingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo
	return listingModel{
		ctx:     ctx,
		loader:  loader,
		load:    load,
		state:   state,
		spinner: s,
	}
}

func (m listingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

func (m listingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case listingResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.state.Apply(msg.page)
		}
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m listingModel) View() string {
	if m.done {
		if m.err != nil {
			return styleError.Render("Error: "+m.err.Error()) + "\n"
		}
		return renderCards(m.state)
	}
	return m.spinner.View() + styleDim.Render(" Loading movies...") + "\n"
}

func (m listingModel) fetch() tea.Cmd {
	return func() tea.Msg {
		page, err := m.load(m.ctx, m.loader)
		return listingResultMsg{page: page, err: err}
	}
}

// renderCards prints the visible movies of state as numbered cards.
func renderCards(state *browse.State) string {
	title := "Popular movies"
	if q := state.Query(); q != "" {
		title = fmt.Sprintf("Results for %q", q)
	}
	if state.FavoritesOnly() {
		title += " (favorites only)"
	}

	var sb strings.Builder
	sb.WriteString(styleHeader.Render(title))
	sb.WriteString("\n")

	visible := state.Visible()
	if len(visible) == 0 {
		if state.FavoritesOnly() {
			sb.WriteString(styleDim.Render("No favorites in this list."))
		} else {
			sb.WriteString(styleDim.Render("No movies found."))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	for i, mv := range visible {
		star := " "
		if state.IsFavorite(mv.ID) {
			star = styleStar.Render("★")
		}
		fmt.Fprintf(&sb, "%s %s %s %s  %s\n",
			styleDim.Render(fmt.Sprintf("%2d.", i+1)),
			star,
			styleTitle.Render(mv.Title),
			styleDim.Render(fmt.Sprintf("(%s)", releaseYear(mv.ReleaseDate))),
			styleInfo.Render(fmt.Sprintf("%.1f", mv.VoteAverage)),
		)
		fmt.Fprintf(&sb, "    %s\n", styleDim.Render(fmt.Sprintf("id %d · released %s", mv.ID, releaseDate(mv.ReleaseDate))))
		if mv.HasTrailer() {
			fmt.Fprintf(&sb, "    %s %s\n", styleSuccess.Render("▶"), trailer.WatchURL(mv.Trailer()))
		} else {
			fmt.Fprintf(&sb, "    %s\n", styleDim.Render("no trailer"))
		}
	}
	return sb.String()
}

func releaseDate(date string) string {
	if date == "" {
		return "unknown"
	}
	return date
}
