// Package catalog loads a page of movies and attaches each movie's trailer key.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/sourcegraph/conc/iter"

	"github.com/vadimtrunov/marquee/internal/tmdb"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// ErrEmptyQuery is returned by SearchByTitle for a blank query. No request is made.
var ErrEmptyQuery = errors.New("catalog: empty search query")

const (
	OpPopular = "popular"
	OpSearch  = "search"
)

// Movie is a listing entry enriched with its trailer key.
// TrailerKey is nil when no trailer was found or the lookup failed.
type Movie struct {
	tmdb.Movie
	TrailerKey *string `json:"trailer_key"`
}

// HasTrailer reports whether the movie has a playable trailer.
func (m Movie) HasTrailer() bool {
	return m.TrailerKey != nil && *m.TrailerKey != ""
}

// Trailer returns the trailer key or an empty string.
func (m Movie) Trailer() string {
	if m.TrailerKey == nil {
		return ""
	}
	return *m.TrailerKey
}

// Page is the result of one catalog load. Seq increases with every load the
// Loader starts, so consumers can drop responses older than one they already applied.
type Page struct {
	Seq          uint64  `json:"seq"`
	Query        string  `json:"query,omitempty"`
	Movies       []Movie `json:"results"`
	TotalResults int     `json:"total_results"`
}

// Error reports a failed listing or search request.
type Error struct {
	Op    string
	Query string
	Seq   uint64
	Err   error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("catalog %s %q: %v", e.Op, e.Query, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Source fetches movie listings.
type Source interface {
	PopularMovies(ctx context.Context) (*tmdb.MoviePage, error)
	SearchMovies(ctx context.Context, query string) (*tmdb.MoviePage, error)
}

// TrailerResolver resolves the trailer of a single movie.
type TrailerResolver interface {
	Resolve(ctx context.Context, movieID int) trailer.Result
}

// Loader runs the listing request and the per-movie trailer lookups.
type Loader struct {
	source   Source
	trailers TrailerResolver
	workers  int
	seq      atomic.Uint64
	logger   *slog.Logger
}

// NewLoader creates a Loader. workers <= 0 runs one trailer lookup per movie
// at once; a positive value bounds the fan-out.
func NewLoader(source Source, trailers TrailerResolver, workers int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source:   source,
		trailers: trailers,
		workers:  workers,
		logger:   logger,
	}
}

// LoadPopular fetches the popular listing and resolves every trailer.
func (l *Loader) LoadPopular(ctx context.Context) (*Page, error) {
	seq := l.seq.Add(1)
	listing, err := l.source.PopularMovies(ctx)
	if err != nil {
		return nil, &Error{Op: OpPopular, Seq: seq, Err: err}
	}
	return l.enrich(ctx, seq, "", listing), nil
}

// SearchByTitle fetches search results for query and resolves every trailer.
func (l *Loader) SearchByTitle(ctx context.Context, query string) (*Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	seq := l.seq.Add(1)
	listing, err := l.source.SearchMovies(ctx, query)
	if err != nil {
		return nil, &Error{Op: OpSearch, Query: query, Seq: seq, Err: err}
	}
	return l.enrich(ctx, seq, query, listing), nil
}

// enrich resolves trailers concurrently. Results land in the slot of their
// source movie, so the output keeps the listing order.
func (l *Loader) enrich(ctx context.Context, seq uint64, query string, listing *tmdb.MoviePage) *Page {
	page := &Page{Seq: seq, Query: query, Movies: []Movie{}}
	if listing == nil || len(listing.Results) == 0 {
		return page
	}
	page.TotalResults = listing.TotalResults

	workers := l.workers
	if workers <= 0 || workers > len(listing.Results) {
		workers = len(listing.Results)
	}

	var found, failed atomic.Int32
	mapper := iter.Mapper[tmdb.Movie, Movie]{MaxGoroutines: workers}
	page.Movies = mapper.Map(listing.Results, func(m *tmdb.Movie) Movie {
		res := l.trailers.Resolve(ctx, m.ID)
		switch res.Status {
		case trailer.StatusFound:
			found.Add(1)
		case trailer.StatusFailed:
			failed.Add(1)
		}
		return Movie{Movie: *m, TrailerKey: res.KeyOrNil()}
	})

	l.logger.Debug("catalog loaded",
		slog.Uint64("seq", seq),
		slog.String("query", query),
		slog.Int("movies", len(page.Movies)),
		slog.Int("trailers", int(found.Load())),
		slog.Int("trailer_failures", int(failed.Load())),
	)
	return page
}
