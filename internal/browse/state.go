// Package browse holds the view state shared by the interactive frontends:
// the installed movie list, the favorites-only filter, the expanded synopsis,
// the trailer overlay and the transient error banner.
package browse

import (
	"errors"
	"slices"
	"time"

	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/core"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// BannerTTL is how long an error banner stays up.
const BannerTTL = 3 * time.Second

const (
	msgPopularFailed = "Could not load popular movies"
	msgSearchFailed  = "Could not search movies"
)

// Overlay is the trailer dialog.
type Overlay struct {
	Open     bool
	MovieID  int
	Title    string
	Key      string
	EmbedURL string
}

// State is not safe for concurrent use; frontends drive it from a single
// event loop or guard it themselves.
type State struct {
	favorites     core.FavoriteChecker
	movies        []catalog.Movie
	loaded        bool
	query         string
	latestSeq     uint64
	favoritesOnly bool
	expandedID    int
	overlay       Overlay
	banner        string
	bannerID      int
}

// New creates an empty State.
func New(favorites core.FavoriteChecker) *State {
	return &State{favorites: favorites}
}

// Apply installs page as the current list. Pages older than the latest
// applied one are dropped and Apply reports false.
func (s *State) Apply(page *catalog.Page) bool {
	if page == nil || page.Seq < s.latestSeq {
		return false
	}
	s.latestSeq = page.Seq
	s.movies = slices.Clone(page.Movies)
	s.query = page.Query
	s.loaded = true

	if s.expandedID != 0 && s.indexOf(s.expandedID) < 0 {
		s.expandedID = 0
	}
	s.overlay = Overlay{}
	return true
}

// Fail raises the error banner for a failed load and returns its id, which
// the caller passes to ClearBanner after BannerTTL. Failures of requests older
// than the latest applied page are ignored (ok is false). The list is untouched.
func (s *State) Fail(err error) (id int, ok bool) {
	if err == nil {
		return 0, false
	}
	text := msgPopularFailed
	var catErr *catalog.Error
	if errors.As(err, &catErr) {
		if catErr.Seq != 0 && catErr.Seq < s.latestSeq {
			return 0, false
		}
		if catErr.Op == catalog.OpSearch {
			text = msgSearchFailed
		}
	}
	s.bannerID++
	s.banner = text
	return s.bannerID, true
}

// ClearBanner hides the banner raised with id. A newer banner stays up.
func (s *State) ClearBanner(id int) {
	if id == s.bannerID {
		s.banner = ""
	}
}

// Banner returns the banner text and whether one is showing.
func (s *State) Banner() (string, bool) {
	return s.banner, s.banner != ""
}

// Loaded reports whether any page has been applied yet.
func (s *State) Loaded() bool { return s.loaded }

// Query returns the query of the installed page ("" for the popular listing).
func (s *State) Query() string { return s.query }

// All returns the installed list, ignoring the favorites filter.
func (s *State) All() []catalog.Movie { return s.movies }

// Visible returns the list as displayed: everything, or only favorites when
// the favorites-only filter is on.
func (s *State) Visible() []catalog.Movie {
	if !s.favoritesOnly || s.favorites == nil {
		return s.movies
	}
	out := make([]catalog.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		if s.favorites.IsFavorite(m.ID) {
			out = append(out, m)
		}
	}
	return out
}

// Movie returns the installed movie with id.
func (s *State) Movie(id int) (catalog.Movie, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return catalog.Movie{}, false
	}
	return s.movies[i], true
}

// FavoritesOnly reports whether the favorites filter is on.
func (s *State) FavoritesOnly() bool { return s.favoritesOnly }

// SetFavoritesOnly sets the favorites filter.
func (s *State) SetFavoritesOnly(on bool) { s.favoritesOnly = on }

// ToggleFavoritesOnly flips the favorites filter and returns the new value.
func (s *State) ToggleFavoritesOnly() bool {
	s.favoritesOnly = !s.favoritesOnly
	return s.favoritesOnly
}

// IsFavorite proxies to the favorites store.
func (s *State) IsFavorite(id int) bool {
	return s.favorites != nil && s.favorites.IsFavorite(id)
}

// ToggleExpanded expands the synopsis of id, or collapses it when it is
// already expanded. At most one synopsis is expanded.
func (s *State) ToggleExpanded(id int) {
	if s.expandedID == id {
		s.expandedID = 0
		return
	}
	s.expandedID = id
}

// Expanded reports whether the synopsis of id is expanded.
func (s *State) Expanded(id int) bool {
	return id != 0 && s.expandedID == id
}

// OpenTrailer opens the overlay for id. Movies without a trailer key are not
// playable and OpenTrailer reports false.
func (s *State) OpenTrailer(id int) bool {
	m, ok := s.Movie(id)
	if !ok || !m.HasTrailer() {
		return false
	}
	key := m.Trailer()
	s.overlay = Overlay{
		Open:     true,
		MovieID:  id,
		Title:    m.Title,
		Key:      key,
		EmbedURL: trailer.EmbedURL(key),
	}
	return true
}

// CloseTrailer hides the overlay.
func (s *State) CloseTrailer() {
	s.overlay = Overlay{}
}

// Overlay returns the trailer overlay.
func (s *State) Overlay() Overlay { return s.overlay }

func (s *State) indexOf(id int) int {
	return slices.IndexFunc(s.movies, func(m catalog.Movie) bool { return m.ID == id })
}
