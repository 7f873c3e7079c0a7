package relay

import (
	"log/slog"
	"slices"
)

// Broadcaster delivers envelopes to the members of a room or to a single
// connection. Delivery is best-effort: a failed send is logged and never
// interrupts delivery to the other recipients.
type Broadcaster struct {
	registry *Registry
	rooms    *RoomTable
	log      *slog.Logger
	metrics  *Metrics
}

// NewBroadcaster returns a broadcaster reading membership from rooms and
// connections from registry.
func NewBroadcaster(registry *Registry, rooms *RoomTable, logger *slog.Logger, metrics *Metrics) *Broadcaster {
	return &Broadcaster{registry: registry, rooms: rooms, log: logger, metrics: metrics}
}

// Broadcast sends env to every member of the named room whose id is not in
// exclude and returns the number of successful deliveries. A missing room is
// not an error.
func (b *Broadcaster) Broadcast(roomName string, env Envelope, exclude ...string) int {
	room, ok := b.rooms.Get(roomName)
	if !ok {
		return 0
	}

	payload, err := Encode(env)
	if err != nil {
		b.log.Error("broadcast encode failed", "room", roomName, "err", err)
		return 0
	}

	delivered := 0
	for _, member := range room.Members() {
		if slices.Contains(exclude, member.ID) {
			continue
		}
		if b.deliver(member, env, payload) {
			delivered++
		}
	}

	b.log.Debug("broadcast", "room", roomName, "type", env.EnvelopeType(), "delivered", delivered)
	return delivered
}

// SendTo delivers env to one connection. It returns false if the connection
// is unknown or the send failed.
func (b *Broadcaster) SendTo(id string, env Envelope) bool {
	conn, ok := b.registry.Get(id)
	if !ok {
		return false
	}

	payload, err := Encode(env)
	if err != nil {
		b.log.Error("send encode failed", "conn", id, "err", err)
		return false
	}
	return b.deliver(conn, env, payload)
}

func (b *Broadcaster) deliver(conn *Connection, env Envelope, payload []byte) (ok bool) {
	if conn.sender == nil {
		b.metrics.deliveryFailed()
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("recovered from panic in send", "conn", conn.ID, "panic", r)
			b.metrics.deliveryFailed()
			ok = false
		}
	}()

	if err := conn.sender.Send(payload); err != nil {
		b.log.Warn("delivery failed", "conn", conn.ID, "type", env.EnvelopeType(), "err", err)
		b.metrics.deliveryFailed()
		return false
	}
	b.metrics.delivered()
	return true
}
