package websocket

import "sync"

// Registry maps each user to its single live connection and back.
// Registering a user again replaces the previous mapping.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string
	byConn map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register maps userID to connID and returns the connection it replaced, if
// any. The replaced connection no longer resolves through OwnerOf.
func (r *Registry) Register(userID, connID string) (superseded string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok && prev != connID {
		delete(r.byConn, prev)
		superseded = prev
	}
	// A connection belongs to exactly one user.
	if owner, ok := r.byConn[connID]; ok && owner != userID {
		delete(r.byUser, owner)
	}

	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return superseded
}

// Unregister removes connID. owned is false when connID was unknown, which
// includes connections that were superseded by a later Register.
func (r *Registry) Unregister(connID string) (userID string, owned bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, owned = r.byConn[connID]
	if !owned {
		return "", false
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

func (r *Registry) OwnerOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
