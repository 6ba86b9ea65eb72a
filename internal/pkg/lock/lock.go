// Package lock provides per-chat locking for session lifecycle operations.
// A chat's lock serializes the create/lookup/remove window around its quiz
// session so that two concurrent commands cannot both open a session in the
// same chat.
package lock

import (
	"sync"
)

// chatMutex wraps a mutex stored per chat.
type chatMutex struct {
	mu sync.Mutex
}

// ChatLock provides per-chat locking keyed by Telegram chat ID.
type ChatLock struct {
	locks sync.Map // map[int64]*chatMutex
	pool  sync.Pool
}

// NewChatLock creates a new ChatLock instance.
func NewChatLock() *ChatLock {
	return &ChatLock{
		pool: sync.Pool{
			New: func() any {
				return &chatMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given chat ID.
func (cl *ChatLock) getLock(chatID int64) *chatMutex {
	if v, ok := cl.locks.Load(chatID); ok {
		return v.(*chatMutex)
	}

	newLock := cl.pool.Get().(*chatMutex)

	actual, loaded := cl.locks.LoadOrStore(chatID, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		cl.pool.Put(newLock)
	}
	return actual.(*chatMutex)
}

// Lock acquires the lock for a chat.
func (cl *ChatLock) Lock(chatID int64) {
	cl.getLock(chatID).mu.Lock()
}

// Unlock releases the lock for a chat.
func (cl *ChatLock) Unlock(chatID int64) {
	if v, ok := cl.locks.Load(chatID); ok {
		v.(*chatMutex).mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (cl *ChatLock) TryLock(chatID int64) bool {
	return cl.getLock(chatID).mu.TryLock()
}

// WithLock executes a function while holding the chat's lock.
func (cl *ChatLock) WithLock(chatID int64, fn func() error) error {
	cl.Lock(chatID)
	defer cl.Unlock(chatID)
	return fn()
}

// IsLocked checks if a chat currently has an active lock.
// Note: This is a point-in-time check and may change immediately after.
func (cl *ChatLock) IsLocked(chatID int64) bool {
	if v, ok := cl.locks.Load(chatID); ok {
		m := v.(*chatMutex)
		if m.mu.TryLock() {
			m.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
