package relay

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownConnection is returned when an operation names a connection id
// that is not registered.
var ErrUnknownConnection = errors.New("unknown connection")

// Sender is the write-only handle to a connection's underlying channel.
// Send must not block; a failed send is reported and isolated by the caller.
type Sender interface {
	Send(payload []byte) error
}

// Connection is the relay's view of one live client session.
type Connection struct {
	ID string

	displayName string
	room        string
	inRoom      bool
	sender      Sender
}

// DisplayName returns the name set by the most recent join.
func (c *Connection) DisplayName() string {
	return c.displayName
}

// Room returns the name of the room the connection currently belongs to and
// whether it belongs to one at all.
func (c *Connection) Room() (string, bool) {
	return c.room, c.inRoom
}

// Registry tracks every live connection by id. It is owned by a Router and
// is not safe for concurrent use; the Hub serializes access.
type Registry struct {
	conns map[string]*Connection
	newID func() string
}

// NewRegistry returns an empty registry that allocates UUIDv4 ids.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		newID: func() string { return uuid.NewString() },
	}
}

// Register allocates a new connection with a fresh id, an empty display name
// and no room.
func (r *Registry) Register(sender Sender) *Connection {
	id := r.newID()
	for _, taken := r.conns[id]; taken; _, taken = r.conns[id] {
		id = r.newID()
	}

	conn := &Connection{ID: id, sender: sender}
	r.conns[id] = conn
	return conn
}

// SetDisplayName overwrites the display name of a connection. Empty and
// duplicate names are accepted.
func (r *Registry) SetDisplayName(id, name string) error {
	conn, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}
	conn.displayName = name
	return nil
}

// Unregister removes a connection. The caller must already have removed it
// from its room.
func (r *Registry) Unregister(id string) {
	delete(r.conns, id)
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return len(r.conns)
}

// Each calls fn for every live connection in no particular order.
func (r *Registry) Each(fn func(*Connection)) {
	for _, conn := range r.conns {
		fn(conn)
	}
}
