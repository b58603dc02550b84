// Package favorites keeps the user's favorite movie ids and mirrors every
// change to durable storage.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vadimtrunov/marquee/internal/storage"
)

// StorageKey is the storage entry holding the JSON-encoded id list.
const StorageKey = "favorites"

// Store is the in-memory favorites set. It is loaded once and written back on
// every add or remove.
type Store struct {
	mu      sync.RWMutex
	storage storage.Storage
	order   []int
	set     map[int]struct{}
	logger  *slog.Logger
}

// Load reads the persisted favorites. A missing entry yields an empty store.
func Load(ctx context.Context, st storage.Storage, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		storage: st,
		set:     make(map[int]struct{}),
		logger:  logger,
	}

	raw, ok, err := st.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}
	if !ok || raw == "" {
		return s, nil
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("parse favorites: %w", err)
	}
	for _, id := range ids {
		if _, dup := s.set[id]; dup {
			continue
		}
		s.set[id] = struct{}{}
		s.order = append(s.order, id)
	}
	logger.Debug("favorites loaded", slog.Int("count", len(s.order)))
	return s, nil
}

// IsFavorite reports whether id is a favorite.
func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[id]
	return ok
}

// IDs returns the favorites in the order they were added.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Add marks id as favorite and persists the set.
func (s *Store) Add(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		return nil
	}
	next := append(slices.Clone(s.order), id)
	if err := s.persist(ctx, next); err != nil {
		return fmt.Errorf("add favorite %d: %w", id, err)
	}
	s.order = next
	s.set[id] = struct{}{}
	return nil
}

// Remove unmarks id and persists the set.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; !ok {
		return nil
	}
	next := slices.DeleteFunc(slices.Clone(s.order), func(v int) bool { return v == id })
	if err := s.persist(ctx, next); err != nil {
		return fmt.Errorf("remove favorite %d: %w", id, err)
	}
	s.order = next
	delete(s.set, id)
	return nil
}

// Toggle flips the favorite flag of id and returns the new state.
func (s *Store) Toggle(ctx context.Context, id int) (bool, error) {
	if s.IsFavorite(id) {
		return false, s.Remove(ctx, id)
	}
	return true, s.Add(ctx, id)
}

func (s *Store) persist(ctx context.Context, ids []int) error {
	if ids == nil {
		ids = []int{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := s.storage.Set(ctx, StorageKey, string(data)); err != nil {
		s.logger.Error("persist favorites failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
