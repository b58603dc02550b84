package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/marquee/internal/browse"
	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/config"
	"github.com/vadimtrunov/marquee/internal/core"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// newBrowseCmd returns the "browse" subcommand for the interactive movie browser.
func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse popular movies interactively",
		Long: "Open the interactive movie browser.\n" +
			"Press / to search, f to favorite, t for the trailer, ? for all keys.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBrowse()
		},
	}
}

// runBrowse initializes services and starts the Bubble Tea browser.
func runBrowse() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs always go to a file.
	logger := config.SetupLogger(cfg.App.LogLevel, config.LogWriter(cfg.App, true))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := initServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	p := tea.NewProgram(newBrowseModel(ctx, svc.loader, svc.favorites), tea.WithAltScreen())

	// Bridge OS signal cancellation into the Bubble Tea event loop.
	go func() {
		<-ctx.Done()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

// catalogLoadedMsg carries a settled catalog page back to the TUI.
type catalogLoadedMsg struct {
	page *catalog.Page
}

// catalogFailedMsg carries a failed catalog load back to the TUI.
type catalogFailedMsg struct {
	err error
}

// bannerExpiredMsg fires BannerTTL after a banner was raised.
type bannerExpiredMsg struct {
	id int
}

// browseKeyMap lists the key bindings of the browser.
type browseKeyMap struct {
	Search   key.Binding
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Favorite key.Binding
	Filter   key.Binding
	Trailer  key.Binding
	Reload   key.Binding
	Close    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newBrowseKeyMap() browseKeyMap {
	return browseKeyMap{
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "synopsis")),
		Favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		Filter:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "favorites only")),
		Trailer:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "trailer")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "popular")),
		Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Favorite, k.Trailer, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand},
		{k.Search, k.Reload, k.Filter},
		{k.Favorite, k.Trailer, k.Close},
		{k.Help, k.Quit},
	}
}

// browseModel is the Bubble Tea model for the movie browser.
type browseModel struct {
	ctx       context.Context
	loader    core.CatalogLoader
	favorites core.FavoritesStore
	state     *browse.State

	keys      browseKeyMap
	help      help.Model
	search    textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	searching bool
	pending   int // catalog loads in flight
	cursor    int // index into state.Visible()
	notice    string
	width     int
	height    int
	ready     bool
}

// newBrowseModel creates a browseModel that loads the popular listing on start.
func newBrowseModel(ctx context.Context, loader core.CatalogLoader, favs core.FavoritesStore) browseModel {
	ti := textinput.New()
	ti.Placeholder = "Type a movie title..."
	ti.Prompt = "Search: "
	ti.CharLimit = 200

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo

	return browseModel{
		ctx:       ctx,
		loader:    loader,
		favorites: favs,
		state:     browse.New(favs),
		keys:      newBrowseKeyMap(),
		help:      help.New(),
		search:    ti,
		spinner:   s,
		pending:   1,
	}
}

// Init starts the popular listing load and the spinner.
func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.loadPopular(), m.spinner.Tick)
}

// Update handles incoming messages and user input.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case catalogLoadedMsg:
		return m.handleLoaded(msg)

	case catalogFailedMsg:
		return m.handleFailed(msg)

	case bannerExpiredMsg:
		m.state.ClearBanner(msg.id)
		return m, nil

	case spinner.TickMsg:
		if m.pending > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.searching {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleResize adjusts the viewport and input dimensions on terminal resize.
func (m *browseModel) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	headerHeight := 2
	footerHeight := 3
	vpHeight := m.height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.search.Width = m.width - len(m.search.Prompt) - 2
	m.help.Width = m.width
	m.refresh()
}

// handleKey dispatches key events depending on focus and overlay state.
func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	if m.state.Overlay().Open {
		if key.Matches(msg, m.keys.Close, m.keys.Trailer) {
			m.state.CloseTrailer()
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		// The banner hides the input until it expires.
		if _, showing := m.state.Banner(); showing {
			return m, nil
		}
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Expand):
		if mv, ok := m.selected(); ok {
			m.state.ToggleExpanded(mv.ID)
		}
	case key.Matches(msg, m.keys.Favorite):
		m.toggleFavorite()
	case key.Matches(msg, m.keys.Filter):
		m.state.ToggleFavoritesOnly()
		m.cursor = 0
	case key.Matches(msg, m.keys.Trailer):
		if mv, ok := m.selected(); ok && !m.state.OpenTrailer(mv.ID) {
			m.notice = "No trailer available for " + mv.Title
		}
	case key.Matches(msg, m.keys.Reload):
		return m.startLoad(m.loadPopular())
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	m.refresh()
	return m, nil
}

// handleSearchKey handles keys while the search input has focus.
func (m browseModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.search.Value())
		if query == "" {
			return m, nil
		}
		m.searching = false
		m.search.Blur()
		return m.startLoad(m.searchByTitle(query))
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// startLoad records a pending load and starts the spinner if it is idle.
func (m browseModel) startLoad(load tea.Cmd) (tea.Model, tea.Cmd) {
	m.pending++
	if m.pending == 1 {
		return m, tea.Batch(load, m.spinner.Tick)
	}
	return m, load
}

// handleLoaded installs a settled page unless a newer one is already shown.
func (m browseModel) handleLoaded(msg catalogLoadedMsg) (tea.Model, tea.Cmd) {
	m.pending--
	if m.state.Apply(msg.page) {
		if msg.page.Query != "" {
			m.search.Reset()
		}
		m.cursor = 0
		m.viewport.GotoTop()
	}
	m.refresh()
	return m, nil
}

// handleFailed raises the error banner and schedules its removal.
func (m browseModel) handleFailed(msg catalogFailedMsg) (tea.Model, tea.Cmd) {
	m.pending--
	id, ok := m.state.Fail(msg.err)
	if !ok {
		return m, nil
	}
	return m, tea.Tick(browse.BannerTTL, func(time.Time) tea.Msg {
		return bannerExpiredMsg{id: id}
	})
}

// toggleFavorite flips the favorite flag of the selected movie.
func (m *browseModel) toggleFavorite() {
	mv, ok := m.selected()
	if !ok {
		return
	}
	if _, err := m.favorites.Toggle(m.ctx, mv.ID); err != nil {
		m.notice = "Could not save favorites: " + err.Error()
		return
	}
	m.clampCursor()
}

func (m *browseModel) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *browseModel) clampCursor() {
	n := len(m.state.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selected returns the movie under the cursor.
func (m browseModel) selected() (catalog.Movie, bool) {
	visible := m.state.Visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return catalog.Movie{}, false
	}
	return visible[m.cursor], true
}

// refresh re-renders the list into the viewport and keeps the cursor row visible.
func (m *browseModel) refresh() {
	if !m.ready {
		return
	}
	content, cursorLine := m.renderList()
	m.viewport.SetContent(content)
	if cursorLine < m.viewport.YOffset {
		m.viewport.SetYOffset(cursorLine)
	} else if cursorLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(cursorLine - m.viewport.Height + 1)
	}
}

// renderList formats the visible movies and returns the line of the cursor row.
func (m browseModel) renderList() (string, int) {
	visible := m.state.Visible()
	switch {
	case !m.state.Loaded():
		return styleDim.Render("Loading movies..."), 0
	case len(visible) == 0 && m.state.FavoritesOnly():
		return styleDim.Render("No favorites in this list. Press tab to show all movies."), 0
	case len(visible) == 0:
		return styleDim.Render("No movies found."), 0
	}

	var sb strings.Builder
	line, cursorLine := 0, 0
	for i, mv := range visible {
		if i == m.cursor {
			cursorLine = line
		}
		sb.WriteString(m.renderRow(mv, i == m.cursor))
		sb.WriteString("\n")
		line++
		if m.state.Expanded(mv.ID) {
			synopsis := m.renderSynopsis(mv)
			sb.WriteString(synopsis)
			sb.WriteString("\n")
			line += strings.Count(synopsis, "\n") + 1
		}
	}
	return sb.String(), cursorLine
}

// renderRow renders a single movie line.
func (m browseModel) renderRow(mv catalog.Movie, selected bool) string {
	marker := "  "
	if selected {
		marker = styleCursor.Render("› ")
	}
	star := styleDim.Render("☆")
	if m.state.IsFavorite(mv.ID) {
		star = styleStar.Render("★")
	}
	play := styleDim.Render("no trailer")
	if mv.HasTrailer() {
		play = styleSuccess.Render("▶ trailer")
	}
	return fmt.Sprintf("%s%s %s %s  %s  %s",
		marker, star, styleTitle.Render(mv.Title),
		styleDim.Render(releaseYear(mv.ReleaseDate)),
		styleInfo.Render(fmt.Sprintf("%.1f", mv.VoteAverage)),
		play,
	)
}

// renderSynopsis renders the expanded overview under a row.
func (m browseModel) renderSynopsis(mv catalog.Movie) string {
	overview := mv.Overview
	if overview == "" {
		overview = "No synopsis available."
	}
	width := m.width - 6
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().PaddingLeft(4).Width(width).Render(overview)
}

// View renders the header, list or trailer overlay, and footer.
func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	body := m.viewport.View()
	if ov := m.state.Overlay(); ov.Open {
		body = renderOverlay(ov, m.width)
	}

	return m.renderHeader() + "\n" + body + "\n" + m.renderFooter()
}

func (m browseModel) renderHeader() string {
	title := "Marquee · Popular"
	if q := m.state.Query(); q != "" {
		title = fmt.Sprintf("Marquee · Search: %q", q)
	}
	if m.state.FavoritesOnly() {
		title += " · ★ favorites only"
	}
	return styleHeader.Render(title)
}

// renderFooter shows the spinner, the banner (in place of the input) and help.
func (m browseModel) renderFooter() string {
	var status string
	switch {
	case m.pending > 0:
		status = m.spinner.View() + styleDim.Render(" Loading...")
	case m.notice != "":
		status = styleDim.Render(m.notice)
	}

	input := m.search.View()
	if text, ok := m.state.Banner(); ok {
		input = styleError.Render("✗ " + text)
	}

	return status + "\n" + input + "\n" + m.help.View(m.keys)
}

// renderOverlay renders the trailer dialog.
func renderOverlay(ov browse.Overlay, width int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("5")).
		Padding(1, 2)
	if width > 8 {
		box = box.Width(width - 4)
	}
	content := styleTitle.Render(ov.Title) + "\n\n" +
		"Embed: " + styleInfo.Render(ov.EmbedURL) + "\n" +
		"Watch: " + styleInfo.Render(trailer.WatchURL(ov.Key)) + "\n\n" +
		styleDim.Render("esc to close")
	return box.Render(content)
}

// releaseYear extracts the year from a YYYY-MM-DD date.
func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return "----"
}

// loadPopular returns a command that loads the popular listing.
func (m browseModel) loadPopular() tea.Cmd {
	ctx, loader := m.ctx, m.loader
	return func() tea.Msg {
		page, err := loader.LoadPopular(ctx)
		if err != nil {
			return catalogFailedMsg{err: err}
		}
		return catalogLoadedMsg{page: page}
	}
}

// searchByTitle returns a command that searches the catalog.
func (m browseModel) searchByTitle(query string) tea.Cmd {
	ctx, loader := m.ctx, m.loader
	return func() tea.Msg {
		page, err := loader.SearchByTitle(ctx, query)
		if err != nil {
			return catalogFailedMsg{err: err}
		}
		return catalogLoadedMsg{page: page}
	}
}
