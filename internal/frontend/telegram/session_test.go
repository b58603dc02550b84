package telegram

import (
	"sync"
	"testing"

	"github.com/vadimtrunov/marquee/internal/catalog"
)

func TestSessionManager_IsAllowed(t *testing.T) {
	t.Run("empty whitelist allows all", func(t *testing.T) {
		sm := newSessionManager(nil, nil)
		if !sm.isAllowed(123) {
			t.Error("expected all users allowed with nil whitelist")
		}
		if !sm.isAllowed(456) {
			t.Error("expected all users allowed with nil whitelist")
		}
	})

	t.Run("empty slice allows all", func(t *testing.T) {
		sm := newSessionManager([]int64{}, nil)
		if !sm.isAllowed(123) {
			t.Error("expected all users allowed with empty whitelist")
		}
	})

	t.Run("whitelist restricts", func(t *testing.T) {
		sm := newSessionManager([]int64{100, 200}, nil)
		if !sm.isAllowed(100) {
			t.Error("expected user 100 allowed")
		}
		if !sm.isAllowed(200) {
			t.Error("expected user 200 allowed")
		}
		if sm.isAllowed(300) {
			t.Error("expected user 300 denied")
		}
	})
}

func TestSessionManager_Get(t *testing.T) {
	sm := newSessionManager(nil, nil)

	s1 := sm.get(100)
	if s1 == nil || s1.state == nil {
		t.Fatal("expected session with state")
	}

	s2 := sm.get(100)
	if s1 != s2 {
		t.Error("expected same session for same chat")
	}

	s3 := sm.get(200)
	if s1 == s3 {
		t.Error("expected different sessions for different chats")
	}
}

func TestSessionManager_Reset(t *testing.T) {
	sm := newSessionManager(nil, nil)

	s1 := sm.get(100)
	s1.state.Apply(&catalog.Page{Seq: 1})
	sm.reset(100)
	s2 := sm.get(100)

	if s1 == s2 {
		t.Error("expected new session after reset")
	}
	if s2.state.Loaded() {
		t.Error("expected fresh state after reset")
	}
}

func TestSessionManager_Concurrent(t *testing.T) {
	sm := newSessionManager(nil, nil)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := sm.get(int64(i % 10))
			if s == nil {
				t.Error("expected non-nil session")
			}
		}()
	}
	wg.Wait()
}
