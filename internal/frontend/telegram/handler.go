package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vadimtrunov/marquee/internal/browse"
	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/tmdb"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

const (
	unauthorizedMsg = "Sorry, you are not authorized to use this bot."
	welcomeMsg      = "Welcome to Marquee!\n\n" +
		"/popular - popular movies\n" +
		"/search <title> - search by title\n" +
		"/favorites - show only favorites (send again to show all)\n" +
		"/reset - forget the current list\n\n" +
		"You can also just send a title."
	searchUsageMsg  = "Usage: /search <title>"
	notLoadedMsg    = "Nothing listed yet. Try /popular or /search <title>."
	resetMsg        = "List cleared. Send /popular or a title to start over."
	unknownMsg      = "Unknown command. Send /start to see what I can do."
	emptyListMsg    = "No movies found."
	noFavoritesMsg  = "None of these movies are favorites yet."
	favoriteAddMsg  = "★ Added to favorites"
	favoriteDelMsg  = "Removed from favorites"
	favoriteFailMsg = "Could not save favorites"

	favCallbackPrefix = "fav:"
	posterSize        = "w500"
)

// handleMessage processes an incoming text message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	b.logger.Debug("received message",
		slog.Int64("user_id", userID),
	)

	if !b.sessions.isAllowed(userID) {
		b.sendText(chatID, unauthorizedMsg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	cmd, args := parseCommand(text)
	switch cmd {
	case "/start", "/help":
		b.sendText(chatID, welcomeMsg)
	case "/popular":
		b.load(ctx, chatID, b.loader.LoadPopular)
	case "/search":
		if args == "" {
			b.sendText(chatID, searchUsageMsg)
			return
		}
		b.load(ctx, chatID, searchFunc(b, args))
	case "/favorites":
		b.toggleFavoritesOnly(chatID)
	case "/reset":
		b.sessions.reset(chatID)
		b.sendText(chatID, resetMsg)
	case "":
		b.load(ctx, chatID, searchFunc(b, args))
	default:
		b.sendText(chatID, unknownMsg)
	}
}

func searchFunc(b *Bot, query string) func(context.Context) (*catalog.Page, error) {
	return func(ctx context.Context) (*catalog.Page, error) {
		return b.loader.SearchByTitle(ctx, query)
	}
}

// load fetches a page, installs it in the chat session and sends it.
// Pages older than the one already installed are dropped silently.
func (b *Bot) load(ctx context.Context, chatID int64, fetch func(context.Context) (*catalog.Page, error)) {
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.api.Request(typing) //nolint:errcheck // best-effort typing indicator

	page, err := fetch(ctx)

	s := b.sessions.get(chatID)
	s.mu.Lock()
	if err != nil {
		id, ok := s.state.Fail(err)
		banner, _ := s.state.Banner()
		s.state.ClearBanner(id)
		s.mu.Unlock()

		if !ok {
			return
		}
		b.logger.Warn("catalog load failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		b.sendText(chatID, "⚠ "+banner)
		return
	}
	if !s.state.Apply(page) {
		s.mu.Unlock()
		b.logger.Debug("dropped stale page", slog.Int64("chat_id", chatID))
		return
	}
	header, movies := snapshot(s.state)
	s.mu.Unlock()

	b.sendMovies(chatID, header, movies)
}

// toggleFavoritesOnly flips the favorites filter and resends the list.
func (b *Bot) toggleFavoritesOnly(chatID int64) {
	s := b.sessions.get(chatID)
	s.mu.Lock()
	if !s.state.Loaded() {
		s.mu.Unlock()
		b.sendText(chatID, notLoadedMsg)
		return
	}
	s.state.ToggleFavoritesOnly()
	header, movies := snapshot(s.state)
	s.mu.Unlock()

	b.sendMovies(chatID, header, movies)
}

// snapshot copies what the chat should display. Callers hold the session lock.
func snapshot(state *browse.State) (string, []catalog.Movie) {
	return listHeader(state), slices.Clone(state.Visible())
}

func listHeader(state *browse.State) string {
	header := "Popular movies"
	if q := state.Query(); q != "" {
		header = fmt.Sprintf("Results for %q", q)
	}
	if state.FavoritesOnly() {
		header += " (favorites only)"
	}
	return header
}

// sendMovies sends the list header followed by one message per movie.
func (b *Bot) sendMovies(chatID int64, header string, movies []catalog.Movie) {
	if len(movies) == 0 {
		empty := emptyListMsg
		if strings.HasSuffix(header, "(favorites only)") {
			empty = noFavoritesMsg
		}
		b.sendText(chatID, header+"\n\n"+empty)
		return
	}

	b.sendText(chatID, fmt.Sprintf("%s: %d", header, len(movies)))
	for _, m := range movies {
		b.sendMovie(chatID, m)
	}
}

// sendMovie sends a movie card with its poster when one is available.
func (b *Bot) sendMovie(chatID int64, m catalog.Movie) {
	caption := movieCaption(m)
	kb := movieKeyboard(m, b.isFavorite(m.ID))

	if url := tmdb.PosterURL(m.PosterPath, posterSize); url != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeMarkdownV2
		photo.ReplyMarkup = kb
		_, err := b.api.Send(photo)
		if err == nil {
			return
		}
		b.logger.Debug("failed to send poster",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}

	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send markdown, retrying plain",
			slog.String("error", err.Error()),
		)
		plain := tgbotapi.NewMessage(chatID, m.Title)
		plain.ReplyMarkup = kb
		if _, err := b.api.Send(plain); err != nil {
			b.logger.Error("failed to send movie",
				slog.Int64("chat_id", chatID),
				slog.Int("movie_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// handleCallback processes inline keyboard callback queries.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	userID := cq.From.ID

	b.logger.Debug("received callback",
		slog.Int64("user_id", userID),
		slog.String("data", cq.Data),
	)

	if !b.sessions.isAllowed(userID) {
		b.answer(cq.ID, unauthorizedMsg)
		return
	}

	id, ok := parseFavoriteCallback(cq.Data)
	if !ok {
		b.answer(cq.ID, "")
		return
	}

	on, err := b.favorites.Toggle(ctx, id)
	if err != nil {
		b.logger.Error("failed to toggle favorite",
			slog.Int("movie_id", id),
			slog.String("error", err.Error()),
		)
		b.answer(cq.ID, favoriteFailMsg)
		return
	}
	if on {
		b.answer(cq.ID, favoriteAddMsg)
	} else {
		b.answer(cq.ID, favoriteDelMsg)
	}

	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	kb := withFavoriteButton(cq.Message.ReplyMarkup, id, on)
	if kb == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID, *kb)
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Debug("failed to update keyboard",
			slog.Int("movie_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bot) isFavorite(id int) bool {
	return b.favorites != nil && b.favorites.IsFavorite(id)
}

// answer acknowledges a callback query, optionally with a toast.
func (b *Bot) answer(callbackID, text string) {
	b.api.Request(tgbotapi.NewCallback(callbackID, text)) //nolint:errcheck // best-effort ack
}

// sendText sends a plain text message (no parse mode).
func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}

// parseCommand splits "/search@marquee_bot dune" into ("/search", "dune").
// Text that is not a command comes back as ("", text).
func parseCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", strings.TrimSpace(text)
	}
	cmd, args, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// movieKeyboard builds the favorite toggle and, when a trailer exists, a
// button that opens it.
func movieKeyboard(m catalog.Movie, favorite bool) tgbotapi.InlineKeyboardMarkup {
	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(favoriteLabel(favorite), favCallbackPrefix+strconv.Itoa(m.ID)),
	)
	if m.HasTrailer() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("▶ Trailer", trailer.WatchURL(m.Trailer())))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func favoriteLabel(favorite bool) string {
	if favorite {
		return "★ Unfavorite"
	}
	return "☆ Favorite"
}

func parseFavoriteCallback(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, favCallbackPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// withFavoriteButton returns a copy of kb with the favorite button of movie
// id relabeled. Other buttons are kept as they are.
func withFavoriteButton(kb *tgbotapi.InlineKeyboardMarkup, id int, favorite bool) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil {
		return nil
	}
	data := favCallbackPrefix + strconv.Itoa(id)
	rows := make([][]tgbotapi.InlineKeyboardButton, len(kb.InlineKeyboard))
	for i, row := range kb.InlineKeyboard {
		rows[i] = slices.Clone(row)
		for j, btn := range rows[i] {
			if btn.CallbackData != nil && *btn.CallbackData == data {
				rows[i][j] = tgbotapi.NewInlineKeyboardButtonData(favoriteLabel(favorite), data)
			}
		}
	}
	return &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
