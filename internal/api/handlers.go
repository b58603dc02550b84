package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/config"
	"github.com/vadimtrunov/marquee/internal/core"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

type handlers struct {
	loader    core.CatalogLoader
	trailers  core.TrailerResolver
	favorites core.FavoritesStore
	logger    *slog.Logger
}

// trailerResponse is the body of GET /api/movies/{id}/trailer.
type trailerResponse struct {
	MovieID    int    `json:"movie_id"`
	TrailerKey string `json:"trailer_key"`
	EmbedURL   string `json:"embed_url"`
	WatchURL   string `json:"watch_url"`
}

// favoritesResponse is the body of GET /api/favorites.
type favoritesResponse struct {
	IDs []int `json:"ids"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) popular(w http.ResponseWriter, r *http.Request) {
	page, err := h.loader.LoadPopular(r.Context())
	if err != nil {
		config.LoggerFromContext(r.Context()).Warn("popular listing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "could not load popular movies")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	page, err := h.loader.SearchByTitle(r.Context(), query)
	if errors.Is(err, catalog.ErrEmptyQuery) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		config.LoggerFromContext(r.Context()).Warn("search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "could not search movies")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) trailer(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	res := h.trailers.Resolve(r.Context(), id)
	switch res.Status {
	case trailer.StatusFound:
		writeJSON(w, http.StatusOK, trailerResponse{
			MovieID:    id,
			TrailerKey: res.Key,
			EmbedURL:   trailer.EmbedURL(res.Key),
			WatchURL:   trailer.WatchURL(res.Key),
		})
	case trailer.StatusNotFound:
		writeError(w, http.StatusNotFound, "no trailer found")
	default:
		writeError(w, http.StatusBadGateway, "could not look up trailer")
	}
}

func (h *handlers) listFavorites(w http.ResponseWriter, _ *http.Request) {
	ids := h.favorites.IDs()
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, favoritesResponse{IDs: ids})
}

func (h *handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	if err := h.favorites.Add(r.Context(), id); err != nil {
		config.LoggerFromContext(r.Context()).Error("add favorite failed",
			slog.Int("movie_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not save favorites")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}
	if err := h.favorites.Remove(r.Context(), id); err != nil {
		config.LoggerFromContext(r.Context()).Error("remove favorite failed",
			slog.Int("movie_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not save favorites")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// movieID parses the {id} route variable, answering 400 when it is not a positive integer.
func movieID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "movie id must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
