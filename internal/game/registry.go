package game

import (
	"sync"
)

// Registry is the process-wide map from chat ID to its live session.
// It is the only structure shared across sessions; each session guards its
// own state once retrieved.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
	}
}

// Create stores a new session for its chat. Returns ErrSessionExists when
// a live session already occupies the chat; the caller must reject the
// action rather than replace it.
func (r *Registry) Create(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ChatID]; ok {
		return ErrSessionExists
	}
	r.sessions[s.ChatID] = s
	return nil
}

// Find retrieves the session for a chat.
func (r *Registry) Find(chatID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// Remove deletes the session for a chat. Removing an absent chat is a
// no-op, which keeps concurrent finalize/cancel teardown idempotent.
func (r *Registry) Remove(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chatID]; !ok {
		return false
	}
	delete(r.sessions, chatID)
	return true
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ChatIDs returns the chats with live sessions.
func (r *Registry) ChatIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
