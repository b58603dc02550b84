package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/tmdb"
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// texts returns the text of every plain message sent.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

// fakeLoader serves canned pages with increasing sequence numbers.
type fakeLoader struct {
	mu      sync.Mutex
	seq     uint64
	movies  []catalog.Movie
	err     error
	queries []string
}

func (l *fakeLoader) next(op, query string) (*catalog.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	if l.err != nil {
		return nil, &catalog.Error{Op: op, Query: query, Seq: l.seq, Err: l.err}
	}
	return &catalog.Page{Seq: l.seq, Query: query, Movies: l.movies, TotalResults: len(l.movies)}, nil
}

func (l *fakeLoader) LoadPopular(context.Context) (*catalog.Page, error) {
	return l.next(catalog.OpPopular, "")
}

func (l *fakeLoader) SearchByTitle(_ context.Context, query string) (*catalog.Page, error) {
	l.mu.Lock()
	l.queries = append(l.queries, query)
	l.mu.Unlock()
	return l.next(catalog.OpSearch, query)
}

// fakeFavorites is an in-memory favorites set.
type fakeFavorites struct {
	mu  sync.Mutex
	ids []int
	err error
}

func (f *fakeFavorites) IsFavorite(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.ids, id)
}

func (f *fakeFavorites) IDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ids)
}

func (f *fakeFavorites) Add(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if !slices.Contains(f.ids, id) {
		f.ids = append(f.ids, id)
	}
	return nil
}

func (f *fakeFavorites) Remove(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids = slices.DeleteFunc(f.ids, func(v int) bool { return v == id })
	return nil
}

func (f *fakeFavorites) Toggle(ctx context.Context, id int) (bool, error) {
	if f.IsFavorite(id) {
		return false, f.Remove(ctx, id)
	}
	return true, f.Add(ctx, id)
}

const testChat = int64(500)

func strPtr(s string) *string { return &s }

func testMovies() []catalog.Movie {
	return []catalog.Movie{
		{Movie: tmdb.Movie{ID: 1, Title: "Dune", PosterPath: "/dune.jpg"}, TrailerKey: strPtr("abc123")},
		{Movie: tmdb.Movie{ID: 2, Title: "Alien"}},
	}
}

func newTestBot(allowed []int64, loader *fakeLoader, favs *fakeFavorites) (*Bot, *fakeAPI) {
	api := &fakeAPI{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newBot(api, allowed, loader, favs, logger), api
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: testChat},
		Text: text,
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in       string
		wantCmd  string
		wantArgs string
	}{
		{in: "/popular", wantCmd: "/popular"},
		{in: "/search dune part two", wantCmd: "/search", wantArgs: "dune part two"},
		{in: "/search@marquee_bot  alien ", wantCmd: "/search", wantArgs: "alien"},
		{in: "/FAVORITES", wantCmd: "/favorites"},
		{in: "the matrix", wantCmd: "", wantArgs: "the matrix"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, args := parseCommand(tt.in)
			if cmd != tt.wantCmd || args != tt.wantArgs {
				t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)", tt.in, cmd, args, tt.wantCmd, tt.wantArgs)
			}
		})
	}
}

func TestParseFavoriteCallback(t *testing.T) {
	if id, ok := parseFavoriteCallback("fav:42"); !ok || id != 42 {
		t.Errorf("parseFavoriteCallback(fav:42) = (%d, %v)", id, ok)
	}
	for _, data := range []string{"", "sel:1", "fav:", "fav:x", "fav:0", "fav:-3"} {
		if _, ok := parseFavoriteCallback(data); ok {
			t.Errorf("parseFavoriteCallback(%q) accepted", data)
		}
	}
}

func TestMovieKeyboard(t *testing.T) {
	movies := testMovies()

	t.Run("with trailer", func(t *testing.T) {
		kb := movieKeyboard(movies[0], false)
		if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
			t.Fatalf("unexpected layout: %+v", kb.InlineKeyboard)
		}
		fav := kb.InlineKeyboard[0][0]
		if fav.Text != "☆ Favorite" || fav.CallbackData == nil || *fav.CallbackData != "fav:1" {
			t.Errorf("unexpected favorite button: %+v", fav)
		}
		watch := kb.InlineKeyboard[0][1]
		if watch.URL == nil || *watch.URL != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("unexpected trailer button: %+v", watch)
		}
	})

	t.Run("without trailer", func(t *testing.T) {
		kb := movieKeyboard(movies[1], true)
		if len(kb.InlineKeyboard[0]) != 1 {
			t.Fatalf("expected only the favorite button, got %d", len(kb.InlineKeyboard[0]))
		}
		if kb.InlineKeyboard[0][0].Text != "★ Unfavorite" {
			t.Errorf("label = %q", kb.InlineKeyboard[0][0].Text)
		}
	})
}

func TestWithFavoriteButton(t *testing.T) {
	if withFavoriteButton(nil, 1, true) != nil {
		t.Error("expected nil for a message without keyboard")
	}

	orig := movieKeyboard(testMovies()[0], false)
	got := withFavoriteButton(&orig, 1, true)

	if got.InlineKeyboard[0][0].Text != "★ Unfavorite" {
		t.Errorf("label = %q, want ★ Unfavorite", got.InlineKeyboard[0][0].Text)
	}
	if got.InlineKeyboard[0][1].URL == nil {
		t.Error("trailer button lost")
	}
	if orig.InlineKeyboard[0][0].Text != "☆ Favorite" {
		t.Error("original keyboard was modified")
	}
}

func TestHandleMessage_Unauthorized(t *testing.T) {
	loader := &fakeLoader{movies: testMovies()}
	b, api := newTestBot([]int64{1}, loader, &fakeFavorites{})

	b.handleMessage(context.Background(), textMessage(2, "/popular"))

	if got := api.texts(); len(got) != 1 || got[0] != unauthorizedMsg {
		t.Errorf("texts = %v", got)
	}
	if loader.seq != 0 {
		t.Error("unauthorized user reached the catalog")
	}
}

func TestHandleMessage_Start(t *testing.T) {
	b, api := newTestBot(nil, &fakeLoader{}, &fakeFavorites{})

	b.handleMessage(context.Background(), textMessage(1, "/start"))

	if got := api.texts(); len(got) != 1 || got[0] != welcomeMsg {
		t.Errorf("texts = %v", got)
	}
}

func TestHandleMessage_Popular(t *testing.T) {
	b, api := newTestBot(nil, &fakeLoader{movies: testMovies()}, &fakeFavorites{})

	b.handleMessage(context.Background(), textMessage(1, "/popular"))

	texts := api.texts()
	if len(texts) != 2 {
		t.Fatalf("expected header and one text card, got %v", texts)
	}
	if texts[0] != "Popular movies: 2" {
		t.Errorf("header = %q", texts[0])
	}
	if !strings.HasPrefix(texts[1], "*Alien*") {
		t.Errorf("card = %q", texts[1])
	}

	photos := api.photos()
	if len(photos) != 1 {
		t.Fatalf("expected one poster, got %d", len(photos))
	}
	if photos[0].File != tgbotapi.FileURL("https://image.tmdb.org/t/p/w500/dune.jpg") {
		t.Errorf("poster = %v", photos[0].File)
	}
	if photos[0].ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("parse mode = %q", photos[0].ParseMode)
	}
}

func TestHandleMessage_Search(t *testing.T) {
	t.Run("blank shows usage", func(t *testing.T) {
		loader := &fakeLoader{}
		b, api := newTestBot(nil, loader, &fakeFavorites{})

		b.handleMessage(context.Background(), textMessage(1, "/search   "))

		if got := api.texts(); len(got) != 1 || got[0] != searchUsageMsg {
			t.Errorf("texts = %v", got)
		}
		if len(loader.queries) != 0 {
			t.Errorf("blank search reached the catalog: %v", loader.queries)
		}
	})

	t.Run("command", func(t *testing.T) {
		loader := &fakeLoader{movies: testMovies()[1:]}
		b, api := newTestBot(nil, loader, &fakeFavorites{})

		b.handleMessage(context.Background(), textMessage(1, "/search alien"))

		if !slices.Equal(loader.queries, []string{"alien"}) {
			t.Errorf("queries = %v", loader.queries)
		}
		if got := api.texts(); got[0] != `Results for "alien": 1` {
			t.Errorf("header = %q", got[0])
		}
	})

	t.Run("plain text", func(t *testing.T) {
		loader := &fakeLoader{}
		b, api := newTestBot(nil, loader, &fakeFavorites{})

		b.handleMessage(context.Background(), textMessage(1, "the matrix"))

		if !slices.Equal(loader.queries, []string{"the matrix"}) {
			t.Errorf("queries = %v", loader.queries)
		}
		want := "Results for \"the matrix\"\n\n" + emptyListMsg
		if got := api.texts(); len(got) != 1 || got[0] != want {
			t.Errorf("texts = %v", got)
		}
	})
}

func TestHandleMessage_Failure(t *testing.T) {
	b, api := newTestBot(nil, &fakeLoader{err: errors.New("timeout")}, &fakeFavorites{})

	b.handleMessage(context.Background(), textMessage(1, "/search dune"))

	if got := api.texts(); len(got) != 1 || got[0] != "⚠ Could not search movies" {
		t.Errorf("texts = %v", got)
	}
	if b.sessions.get(testChat).state.Loaded() {
		t.Error("failed load should not install a list")
	}
}

func TestHandleMessage_StalePageDropped(t *testing.T) {
	loader := &fakeLoader{movies: testMovies()}
	b, api := newTestBot(nil, loader, &fakeFavorites{})
	b.sessions.get(testChat).state.Apply(&catalog.Page{Seq: 10})

	b.handleMessage(context.Background(), textMessage(1, "/popular"))

	if got := api.texts(); len(got) != 0 {
		t.Errorf("stale page was sent: %v", got)
	}
}

func TestHandleMessage_FavoritesFilter(t *testing.T) {
	t.Run("nothing loaded", func(t *testing.T) {
		b, api := newTestBot(nil, &fakeLoader{}, &fakeFavorites{})

		b.handleMessage(context.Background(), textMessage(1, "/favorites"))

		if got := api.texts(); len(got) != 1 || got[0] != notLoadedMsg {
			t.Errorf("texts = %v", got)
		}
	})

	t.Run("toggles", func(t *testing.T) {
		b, api := newTestBot(nil, &fakeLoader{movies: testMovies()}, &fakeFavorites{ids: []int{2}})
		ctx := context.Background()

		b.handleMessage(ctx, textMessage(1, "/popular"))
		api.sent = nil

		b.handleMessage(ctx, textMessage(1, "/favorites"))
		texts := api.texts()
		if len(texts) != 2 || texts[0] != "Popular movies (favorites only): 1" {
			t.Fatalf("texts = %v", texts)
		}
		if len(api.photos()) != 0 {
			t.Error("non-favorite movie was sent")
		}

		api.sent = nil
		b.handleMessage(ctx, textMessage(1, "/favorites"))
		if got := api.texts(); got[0] != "Popular movies: 2" {
			t.Errorf("header after second toggle = %q", got[0])
		}
	})
}

func TestHandleMessage_Reset(t *testing.T) {
	b, api := newTestBot(nil, &fakeLoader{movies: testMovies()}, &fakeFavorites{})
	ctx := context.Background()

	b.handleMessage(ctx, textMessage(1, "/popular"))
	b.handleMessage(ctx, textMessage(1, "/reset"))

	if b.sessions.get(testChat).state.Loaded() {
		t.Error("expected empty session after reset")
	}
	texts := api.texts()
	if texts[len(texts)-1] != resetMsg {
		t.Errorf("last text = %q", texts[len(texts)-1])
	}
}

func TestHandleCallback_ToggleFavorite(t *testing.T) {
	favs := &fakeFavorites{}
	b, api := newTestBot(nil, &fakeLoader{}, favs)
	kb := movieKeyboard(testMovies()[0], false)
	cq := &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 1},
		Data: "fav:1",
		Message: &tgbotapi.Message{
			MessageID:   77,
			Chat:        &tgbotapi.Chat{ID: testChat},
			ReplyMarkup: &kb,
		},
	}

	b.handleCallback(context.Background(), cq)

	if !favs.IsFavorite(1) {
		t.Fatal("movie 1 should be a favorite")
	}
	if len(api.requests) != 2 {
		t.Fatalf("expected ack and edit, got %d requests", len(api.requests))
	}
	ack, ok := api.requests[0].(tgbotapi.CallbackConfig)
	if !ok || ack.CallbackQueryID != "cb1" || ack.Text != favoriteAddMsg {
		t.Errorf("unexpected ack: %+v", api.requests[0])
	}
	edit, ok := api.requests[1].(tgbotapi.EditMessageReplyMarkupConfig)
	if !ok {
		t.Fatalf("expected keyboard edit, got %T", api.requests[1])
	}
	if edit.MessageID != 77 || edit.ReplyMarkup.InlineKeyboard[0][0].Text != "★ Unfavorite" {
		t.Errorf("unexpected edit: %+v", edit)
	}

	b.handleCallback(context.Background(), cq)
	if favs.IsFavorite(1) {
		t.Error("second tap should unfavorite")
	}
}

func TestHandleCallback_SaveError(t *testing.T) {
	b, api := newTestBot(nil, &fakeLoader{}, &fakeFavorites{err: errors.New("disk full")})

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 1},
		Data: "fav:1",
	})

	if len(api.requests) != 1 {
		t.Fatalf("expected only the ack, got %d requests", len(api.requests))
	}
	if ack := api.requests[0].(tgbotapi.CallbackConfig); ack.Text != favoriteFailMsg {
		t.Errorf("ack text = %q", ack.Text)
	}
}

func TestHandleCallback_Unauthorized(t *testing.T) {
	favs := &fakeFavorites{}
	b, _ := newTestBot([]int64{1}, &fakeLoader{}, favs)

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 2},
		Data: "fav:1",
	})

	if favs.IsFavorite(1) {
		t.Error("unauthorized user changed favorites")
	}
}
