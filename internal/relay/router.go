package relay

import (
	"log/slog"
)

// Router decodes inbound frames and dispatches them to the membership
// manager or the chat path. It owns the registry and room table and must be
// driven from a single goroutine; see Hub.
type Router struct {
	registry    *Registry
	rooms       *RoomTable
	broadcaster *Broadcaster
	membership  *Membership
	log         *slog.Logger
	metrics     *Metrics
}

// NewRouter builds a router with empty state. metrics may be nil.
func NewRouter(logger *slog.Logger, metrics *Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry()
	rooms := NewRoomTable()
	broadcaster := NewBroadcaster(registry, rooms, logger, metrics)

	return &Router{
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
		membership:  NewMembership(registry, rooms, broadcaster, logger, metrics),
		log:         logger,
		metrics:     metrics,
	}
}

// Registry exposes the connection registry for read-only inspection.
func (r *Router) Registry() *Registry { return r.registry }

// Rooms exposes the room table for read-only inspection.
func (r *Router) Rooms() *RoomTable { return r.rooms }

// HandleConnect registers a new connection and greets it with its id.
func (r *Router) HandleConnect(sender Sender) *Connection {
	conn := r.registry.Register(sender)
	r.metrics.setConnections(r.registry.Len())
	r.log.Info("connection opened", "conn", conn.ID, "connections", r.registry.Len())

	r.broadcaster.SendTo(conn.ID, NewWelcome(conn.ID, conn.DisplayName()))
	return conn
}

// HandleFrame processes one raw inbound frame from the connection id.
// Malformed frames and unknown types are logged and dropped.
func (r *Router) HandleFrame(id string, raw []byte) {
	conn, ok := r.registry.Get(id)
	if !ok {
		r.log.Warn("frame from unknown connection", "conn", id)
		return
	}

	in, err := DecodeInbound(raw)
	if err != nil {
		r.metrics.frame("malformed")
		r.log.Warn("dropping malformed frame", "conn", id, "err", err)
		return
	}

	switch in.Type {
	case TypeJoin:
		r.metrics.frame(TypeJoin)
		if err := r.membership.Join(id, in.Room, in.DisplayName); err != nil {
			r.log.Error("join failed", "conn", id, "room", in.Room, "err", err)
		}

	case TypeMessage:
		r.metrics.frame(TypeMessage)
		r.handleChat(conn, in.Text)

	default:
		r.metrics.frame("unknown")
		r.log.Warn("dropping frame with unknown type", "conn", id, "type", in.Type)
	}
}

// HandleDisconnect runs the full leave and unregister sequence for id.
func (r *Router) HandleDisconnect(id string) {
	if _, ok := r.registry.Get(id); !ok {
		return
	}
	r.membership.Disconnect(id)
}

func (r *Router) handleChat(conn *Connection, text string) {
	roomName, inRoom := conn.Room()
	if !inRoom {
		r.broadcaster.SendTo(conn.ID, NewError(notInRoomMessage))
		return
	}

	r.log.Debug("chat message", "conn", conn.ID, "room", roomName, "bytes", len(text))
	r.broadcaster.Broadcast(roomName, NewChatMessage(conn.ID, text, conn.DisplayName()))
}
