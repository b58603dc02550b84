package browse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/tmdb"
)

type favSet map[int]bool

func (f favSet) IsFavorite(id int) bool { return f[id] }

func key(s string) *string { return &s }

func page(seq uint64, movies ...catalog.Movie) *catalog.Page {
	return &catalog.Page{Seq: seq, Movies: movies}
}

func movie(id int, trailerKey *string) catalog.Movie {
	return catalog.Movie{Movie: tmdb.Movie{ID: id, Title: "movie"}, TrailerKey: trailerKey}
}

func visibleIDs(s *State) []int {
	var ids []int
	for _, m := range s.Visible() {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestApply_InstallsList(t *testing.T) {
	s := New(favSet{})
	assert.False(t, s.Loaded())

	require.True(t, s.Apply(page(1, movie(1, nil), movie(2, nil))))
	assert.True(t, s.Loaded())
	assert.Equal(t, []int{1, 2}, visibleIDs(s))
}

func TestApply_DropsStalePages(t *testing.T) {
	s := New(favSet{})

	// The newer search settles first; the older popular load arrives late.
	require.True(t, s.Apply(page(2, movie(20, nil))))
	assert.False(t, s.Apply(page(1, movie(10, nil))))
	assert.Equal(t, []int{20}, visibleIDs(s))

	assert.False(t, s.Apply(nil))
}

func TestFavoritesOnlyFilter(t *testing.T) {
	favs := favSet{2: true, 4: true}
	s := New(favs)
	s.Apply(page(1, movie(1, nil), movie(2, nil), movie(3, nil), movie(4, nil)))

	assert.True(t, s.ToggleFavoritesOnly())
	assert.Equal(t, []int{2, 4}, visibleIDs(s))

	// The filter tracks the store live.
	favs[1] = true
	assert.Equal(t, []int{1, 2, 4}, visibleIDs(s))

	assert.False(t, s.ToggleFavoritesOnly())
	assert.Equal(t, []int{1, 2, 3, 4}, visibleIDs(s))
}

func TestToggleExpanded(t *testing.T) {
	s := New(favSet{})
	s.Apply(page(1, movie(1, nil), movie(2, nil)))

	s.ToggleExpanded(1)
	assert.True(t, s.Expanded(1))

	s.ToggleExpanded(2)
	assert.False(t, s.Expanded(1), "only one synopsis expands at a time")
	assert.True(t, s.Expanded(2))

	s.ToggleExpanded(2)
	assert.False(t, s.Expanded(2))
}

func TestApply_CollapsesMissingExpanded(t *testing.T) {
	s := New(favSet{})
	s.Apply(page(1, movie(1, nil)))
	s.ToggleExpanded(1)

	s.Apply(page(2, movie(2, nil)))
	assert.False(t, s.Expanded(1))
}

func TestOpenTrailer(t *testing.T) {
	s := New(favSet{})
	s.Apply(page(1, movie(42, key("abc123")), movie(43, nil)))

	assert.False(t, s.OpenTrailer(43), "movies without a trailer are not playable")
	assert.False(t, s.Overlay().Open)

	require.True(t, s.OpenTrailer(42))
	ov := s.Overlay()
	assert.True(t, ov.Open)
	assert.Equal(t, "abc123", ov.Key)
	assert.Contains(t, ov.EmbedURL, "abc123")

	s.CloseTrailer()
	assert.False(t, s.Overlay().Open)
	assert.Empty(t, s.Overlay().Key)

	assert.False(t, s.OpenTrailer(999))
}

func TestFail_ShowsBannerAndKeepsList(t *testing.T) {
	s := New(favSet{})
	s.Apply(page(1, movie(1, nil)))

	id, ok := s.Fail(&catalog.Error{Op: catalog.OpSearch, Query: "x", Seq: 2, Err: errors.New("boom")})
	require.True(t, ok)
	text, shown := s.Banner()
	assert.True(t, shown)
	assert.Equal(t, msgSearchFailed, text)
	assert.Equal(t, []int{1}, visibleIDs(s))

	s.ClearBanner(id)
	_, shown = s.Banner()
	assert.False(t, shown)
}

func TestFail_PopularMessage(t *testing.T) {
	s := New(favSet{})
	_, ok := s.Fail(&catalog.Error{Op: catalog.OpPopular, Seq: 1, Err: errors.New("boom")})
	require.True(t, ok)
	text, _ := s.Banner()
	assert.Equal(t, msgPopularFailed, text)
	assert.False(t, s.Loaded())
}

func TestClearBanner_OlderTimerKeepsNewerBanner(t *testing.T) {
	s := New(favSet{})
	first, _ := s.Fail(errors.New("first"))
	second, _ := s.Fail(errors.New("second"))

	s.ClearBanner(first)
	_, shown := s.Banner()
	assert.True(t, shown)

	s.ClearBanner(second)
	_, shown = s.Banner()
	assert.False(t, shown)
}

func TestFail_IgnoresStaleErrors(t *testing.T) {
	s := New(favSet{})
	s.Apply(page(5, movie(1, nil)))

	_, ok := s.Fail(&catalog.Error{Op: catalog.OpSearch, Seq: 4, Err: errors.New("late")})
	assert.False(t, ok)
	_, shown := s.Banner()
	assert.False(t, shown)

	_, ok = s.Fail(nil)
	assert.False(t, ok)
}
