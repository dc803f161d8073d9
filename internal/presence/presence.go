// README: Presence registry; tracks which users hold a live connection.
package presence

import (
	"sync"

	"ryde/internal/types"
)

// Registry maps user IDs to their current connection ID. A user has at most
// one live connection; a newer connection supersedes the older one.
type Registry struct {
	mu    sync.RWMutex
	conns map[types.ID]string
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[types.ID]string)}
}

// Add registers a connection for the user and returns the connection ID it
// superseded, if any.
func (r *Registry) Add(userID types.ID, connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.conns[userID]
	r.conns[userID] = connID
	if had && prev != connID {
		return prev, true
	}
	return "", false
}

// Remove drops the user's registration, but only if it still belongs to the
// given connection. A stale disconnect must not evict a newer connection.
func (r *Registry) Remove(userID types.ID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == connID {
		delete(r.conns, userID)
		return true
	}
	return false
}

// IsPresent reports whether the user currently holds a live connection.
func (r *Registry) IsPresent(userID types.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
