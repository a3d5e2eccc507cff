// Package registry implements ConnectionRegistry: the only component that
// touches the transport layer. It maps a userId to its live sockets, tracks
// presence, and is the single source of truth the rest of the system
// consults when it needs to know whether a player is still connected.
package registry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the registry needs; kept as an
// interface so tests can register fakes without opening real sockets.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

type userSockets struct {
	mu       sync.Mutex
	conns    map[*socketHandle]struct{}
	lastSeen time.Time
}

type socketHandle struct {
	conn Conn
}

// Registry is safe for concurrent use: each user's socket set is guarded by
// its own mutex, so registering one user never blocks lookups for another.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*userSockets
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{users: make(map[string]*userSockets)}
}

// Register attaches a new socket for userId and returns a handle used to
// Unregister it later (one user may have more than one live socket — e.g.
// two browser tabs).
func (r *Registry) Register(userID string, conn Conn) *socketHandle {
	r.mu.Lock()
	us, ok := r.users[userID]
	if !ok {
		us = &userSockets{conns: make(map[*socketHandle]struct{})}
		r.users[userID] = us
	}
	r.mu.Unlock()

	handle := &socketHandle{conn: conn}
	us.mu.Lock()
	us.conns[handle] = struct{}{}
	us.lastSeen = time.Now()
	us.mu.Unlock()
	return handle
}

// Unregister removes one socket handle for userId. If it was the last
// socket, the user is reported as no longer connected by IsConnected.
func (r *Registry) Unregister(userID string, handle *socketHandle) {
	r.mu.RLock()
	us, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	us.mu.Lock()
	delete(us.conns, handle)
	us.lastSeen = time.Now()
	empty := len(us.conns) == 0
	us.mu.Unlock()

	if empty {
		r.mu.Lock()
		if cur, ok := r.users[userID]; ok && cur == us {
			delete(r.users, userID)
		}
		r.mu.Unlock()
	}
}

// IsConnected reports whether userId currently has at least one live socket.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	us, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	return len(us.conns) > 0
}

// LastSeen returns the last registration/deregistration timestamp for
// userId, or the zero time if unknown.
func (r *Registry) LastSeen(userID string) time.Time {
	r.mu.RLock()
	us, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.lastSeen
}

// Send writes v to every live socket for userId. Write errors are returned
// per-socket but do not stop delivery to the rest.
func (r *Registry) Send(userID string, v interface{}) []error {
	r.mu.RLock()
	us, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	us.mu.Lock()
	handles := make([]*socketHandle, 0, len(us.conns))
	for h := range us.conns {
		handles = append(handles, h)
	}
	us.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.conn.WriteJSON(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
