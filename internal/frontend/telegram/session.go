package telegram

import (
	"sync"

	"github.com/vadimtrunov/marquee/internal/browse"
	"github.com/vadimtrunov/marquee/internal/core"
)

// session is the browsing state of one chat.
type session struct {
	mu    sync.Mutex
	state *browse.State
}

// sessionManager manages per-chat browse sessions and access control.
type sessionManager struct {
	mu        sync.Mutex
	sessions  map[int64]*session
	allowed   map[int64]bool // nil or empty = allow all
	favorites core.FavoriteChecker
}

// newSessionManager creates a session manager.
// If allowedUserIDs is empty, all users are allowed.
func newSessionManager(allowedUserIDs []int64, favorites core.FavoriteChecker) *sessionManager {
	allowed := make(map[int64]bool, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = true
	}
	return &sessionManager{
		sessions:  make(map[int64]*session),
		allowed:   allowed,
		favorites: favorites,
	}
}

// isAllowed checks if a user is authorized to use the bot.
func (sm *sessionManager) isAllowed(userID int64) bool {
	if len(sm.allowed) == 0 {
		return true
	}
	return sm.allowed[userID]
}

// get returns the session of chatID, creating it on first use.
func (sm *sessionManager) get(chatID int64) *session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[chatID]
	if !ok {
		s = &session{state: browse.New(sm.favorites)}
		sm.sessions[chatID] = s
	}
	return s
}

// reset drops the session of chatID.
func (sm *sessionManager) reset(chatID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, chatID)
}
