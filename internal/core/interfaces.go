package core

import (
	"context"

	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// CatalogLoader loads a page of movies with their trailer keys attached.
type CatalogLoader interface {
	// LoadPopular fetches the first page of popular movies
	LoadPopular(ctx context.Context) (*catalog.Page, error)

	// SearchByTitle fetches the first page of title matches; blank queries return catalog.ErrEmptyQuery
	SearchByTitle(ctx context.Context, query string) (*catalog.Page, error)
}

// TrailerResolver finds the trailer of a single movie.
type TrailerResolver interface {
	Resolve(ctx context.Context, movieID int) trailer.Result
}

// FavoriteChecker answers favorite lookups without mutating anything.
type FavoriteChecker interface {
	IsFavorite(id int) bool
}

// FavoritesStore is the persisted favorites set.
type FavoritesStore interface {
	FavoriteChecker

	// IDs lists favorites in insertion order
	IDs() []int

	// Add marks a movie as favorite and persists the set
	Add(ctx context.Context, id int) error

	// Remove unmarks a movie and persists the set
	Remove(ctx context.Context, id int) error

	// Toggle flips the flag and reports the new state
	Toggle(ctx context.Context, id int) (bool, error)
}

// Frontend defines the interface for long-running user-facing surfaces (API server, Telegram).
type Frontend interface {
	// Start runs the frontend until ctx is canceled
	Start(ctx context.Context) error

	// Name returns the frontend name (e.g., "api", "telegram")
	Name() string
}
