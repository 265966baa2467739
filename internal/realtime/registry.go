package realtime

import (
	"errors"
	"sync"
)

var (
	ErrUnknownConnection = errors.New("connection is not registered")
	ErrRegistryClosed    = errors.New("connection registry is closed")
)

// Connection is a single client socket. Send must not block.
type Connection interface {
	ID() string
	UserID() string
	Send(frame []byte) bool
	Close()
}

type set map[string]struct{}

// Registry maps users to their connections and connections to the rooms they
// subscribed to. Every method takes the same lock, so a connection is never
// visible in one index and missing from another.
type Registry struct {
	mu          sync.Mutex
	connections map[string]Connection
	users       map[string]set
	rooms       map[string]set
	memberships map[string]set
	closed      bool
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]Connection),
		users:       make(map[string]set),
		rooms:       make(map[string]set),
		memberships: make(map[string]set),
	}
}

// Register makes the connection reachable by its user. Once the registry is
// closed the connection is closed instead.
func (r *Registry) Register(userID string, conn Connection) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return ErrRegistryClosed
	}
	defer r.mu.Unlock()

	r.connections[conn.ID()] = conn
	add(r.users, userID, conn.ID())
	return nil
}

// Deregister drops the connection from the user and from every room it joined.
// It reports whether the connection was registered.
func (r *Registry) Deregister(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return false
	}

	delete(r.connections, connID)
	remove(r.users, conn.UserID(), connID)
	for room := range r.memberships[connID] {
		remove(r.rooms, room, connID)
	}
	delete(r.memberships, connID)
	return true
}

func (r *Registry) ConnectionsForUser(userID string) []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(r.users[userID])
}

func (r *Registry) Join(connID, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connID]; !ok {
		return ErrUnknownConnection
	}
	add(r.rooms, room, connID)
	add(r.memberships, connID, room)
	return nil
}

func (r *Registry) Leave(connID, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connID]; !ok {
		return ErrUnknownConnection
	}
	remove(r.rooms, room, connID)
	remove(r.memberships, connID, room)
	return nil
}

func (r *Registry) ConnectionsInRoom(room string) []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(r.rooms[room])
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// Close closes and forgets every connection and rejects later registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	connections := r.connections
	r.connections = make(map[string]Connection)
	r.users = make(map[string]set)
	r.rooms = make(map[string]set)
	r.memberships = make(map[string]set)
	r.mu.Unlock()

	for _, conn := range connections {
		conn.Close()
	}
}

func (r *Registry) resolve(ids set) []Connection {
	result := make([]Connection, 0, len(ids))
	for id := range ids {
		if conn, ok := r.connections[id]; ok {
			result = append(result, conn)
		}
	}
	return result
}

func add(index map[string]set, key, value string) {
	values, ok := index[key]
	if !ok {
		values = make(set)
		index[key] = values
	}
	values[value] = struct{}{}
}

func remove(index map[string]set, key, value string) {
	values, ok := index[key]
	if !ok {
		return
	}
	delete(values, value)
	if len(values) == 0 {
		delete(index, key)
	}
}
