// internal/messaging/registry.go

package messaging

import (
	"context"
	"log"
	"sync"
)

// Conn is a live transport handle held by the registry. Enqueue must not
// block; it reports false when the connection's buffer is full.
type Conn interface {
	ID() string
	UserID() int64
	Enqueue(event Event) bool
}

// StatusWriter persists presence changes. Writes are best-effort: the
// registry logs failures and never propagates them to callers.
type StatusWriter interface {
	SetOnline(ctx context.Context, userID int64, online bool) error
}

// Registry maps a user to at most one live connection. It is the only
// process-wide mutable shared structure in the core and is safe for
// concurrent use without external locking. Instances are injected, never
// ambient.
type Registry struct {
	mu     sync.RWMutex
	conns  map[int64]Conn
	status StatusWriter
	wg     sync.WaitGroup
}

// NewRegistry creates a registry. status may be nil.
func NewRegistry(status StatusWriter) *Registry {
	return &Registry{
		conns:  make(map[int64]Conn),
		status: status,
	}
}

// Register maps userID to conn, superseding any previous mapping.
// The superseded handle is not closed; its transport owns that.
func (r *Registry) Register(userID int64, conn Conn) {
	r.mu.Lock()
	r.conns[userID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	r.writeStatus(userID, true)
	activeConnections.Set(float64(total))

	log.Printf("User %d connected (conn %s). Total clients: %d", userID, conn.ID(), total)
}

// Lookup returns the live connection for userID, if any. Never blocks
// beyond the read lock.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Online reports whether userID has a live connection
func (r *Registry) Online(userID int64) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Unregister removes the mapping whose handle matches conn. It is a
// no-op when the mapping was already removed or superseded by a newer
// connection for the same user.
func (r *Registry) Unregister(conn Conn) {
	userID := conn.UserID()

	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || current.ID() != conn.ID() {
		r.mu.Unlock()
		return
	}
	delete(r.conns, userID)
	total := len(r.conns)
	r.mu.Unlock()

	r.writeStatus(userID, false)
	activeConnections.Set(float64(total))

	log.Printf("User %d disconnected (conn %s). Total clients: %d", userID, conn.ID(), total)
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// writeStatus updates presence asynchronously so status storage can
// never block message routing
func (r *Registry) writeStatus(userID int64, online bool) {
	if r.status == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.status.SetOnline(context.Background(), userID, online); err != nil {
			log.Printf("Error updating online status for user %d: %v", userID, err)
		}
	}()
}

// Wait blocks until pending status writes finish. Used on shutdown and
// in tests.
func (r *Registry) Wait() {
	r.wg.Wait()
}
