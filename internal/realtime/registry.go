// Package realtime is the in-memory core of the hub: the connection
// registry, room membership index, presence tracker, and broadcast engine,
// plus the per-connection session that ties them together. All shared state
// lives behind the narrow contracts in this package; nothing outside it
// touches the underlying maps.
package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrDuplicateConnection = errors.New("connection id already registered")

// Pusher is the outbound half of a transport: a best-effort, non-blocking
// push of an already-serialized frame. A Push against a closed or congested
// transport returns an error and is never retried.
type Pusher interface {
	Push(data []byte) error
}

// Conn is a live, authenticated connection. The rooms map is the forward
// reference from connection to joined rooms (room id -> room name); it is
// mutated only by the connection's own session loop, so it needs no lock.
type Conn struct {
	ID        string
	UserID    string
	ProjectID string

	transport Pusher
	rooms     map[string]string
}

func NewConn(userID, projectID string, transport Pusher) *Conn {
	return &Conn{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		transport: transport,
		rooms:     make(map[string]string),
	}
}

func (c *Conn) Push(data []byte) error {
	return c.transport.Push(data)
}

func (c *Conn) trackJoin(roomID, roomName string) {
	c.rooms[roomID] = roomName
}

func (c *Conn) trackLeave(roomID string) {
	delete(c.rooms, roomID)
}

func (c *Conn) inRoom(roomID string) bool {
	_, ok := c.rooms[roomID]
	return ok
}

// roomIDByName finds a joined room's id by its wire-protocol name.
func (c *Conn) roomIDByName(name string) (string, bool) {
	for id, n := range c.rooms {
		if n == name {
			return id, true
		}
	}
	return "", false
}

// Registry owns the set of live connections. Connections are registered by
// their own session after authentication and removed by the same session on
// transport close; the broadcast engine only reads.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

func (r *Registry) Register(c *Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID]; ok {
		return "", ErrDuplicateConnection
	}
	r.conns[c.ID] = c
	return c.ID, nil
}

func (r *Registry) Get(id string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[id]
	return c, ok
}

// Remove deletes the connection and returns the rooms it was still joined
// to (room id -> room name) so the caller can notify them. Removing an
// unknown id is a no-op with ok=false, which keeps double cleanup on the
// disconnect path harmless.
func (r *Registry) Remove(id string) (map[string]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)

	rooms := make(map[string]string, len(c.rooms))
	for roomID, name := range c.rooms {
		rooms[roomID] = name
	}
	return rooms, true
}

// ByProject visits every live connection in the project without
// materializing the connection table. The visit stops when fn returns false.
func (r *Registry) ByProject(projectID string, fn func(c *Conn) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns {
		if c.ProjectID != projectID {
			continue
		}
		if !fn(c) {
			return
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) CountByProject(projectID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.conns {
		if c.ProjectID == projectID {
			n++
		}
	}
	return n
}
