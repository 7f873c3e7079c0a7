package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/stretchr/testify/require"
)

// recordingSender captures every payload it is given.
type recordingSender struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	closed   bool
}

func (s *recordingSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// envelopes decodes everything received so far.
func (s *recordingSender) envelopes(t *testing.T) []map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.payloads))
	for _, p := range s.payloads {
		var env map[string]any
		require.NoError(t, json.Unmarshal(p, &env))
		out = append(out, env)
	}
	return out
}

// ofType returns the received envelopes whose type matches.
func (s *recordingSender) ofType(t *testing.T, envelopeType string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, env := range s.envelopes(t) {
		if env["type"] == envelopeType {
			out = append(out, env)
		}
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = nil
}

// panickingSender simulates a transport whose channel was already closed.
type panickingSender struct{}

func (panickingSender) Send([]byte) error { panic("send on closed channel") }

var errBufferFull = errors.New("buffer full")

func newTestRouter() *Router {
	return NewRouter(logging.Discard(), NewMetrics())
}

// requireConsistent checks the bidirectional membership invariants: no empty
// room exists, every member points back at its room, and every connection
// that claims a room is in that room's member set.
func requireConsistent(t *testing.T, r *Router) {
	t.Helper()

	for _, info := range r.rooms.Snapshot() {
		require.Positive(t, info.Members, "room %q is empty", info.Name)
		room, _ := r.rooms.Get(info.Name)
		for _, member := range room.Members() {
			name, in := member.Room()
			require.True(t, in, "member %s has no room reference", member.ID)
			require.Equal(t, info.Name, name)
		}
	}

	r.registry.Each(func(conn *Connection) {
		name, in := conn.Room()
		if !in {
			for _, info := range r.rooms.Snapshot() {
				room, _ := r.rooms.Get(info.Name)
				require.False(t, room.Has(conn.ID), "unjoined %s found in %q", conn.ID, info.Name)
			}
			return
		}
		room, ok := r.rooms.Get(name)
		require.True(t, ok, "room %q of %s missing", name, conn.ID)
		require.True(t, room.Has(conn.ID))
	})
}
