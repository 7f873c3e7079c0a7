package relay

import "log/slog"

// Membership implements the join, leave and disconnect transitions. Each
// transition updates the Registry and the RoomTable together so that a
// connection's room reference always matches the room's member set.
type Membership struct {
	registry    *Registry
	rooms       *RoomTable
	broadcaster *Broadcaster
	log         *slog.Logger
	metrics     *Metrics
}

// NewMembership wires a membership manager over the given state.
func NewMembership(registry *Registry, rooms *RoomTable, broadcaster *Broadcaster, logger *slog.Logger, metrics *Metrics) *Membership {
	return &Membership{
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
		log:         logger,
		metrics:     metrics,
	}
}

// Join moves the connection into roomName under displayName. Any current
// room is left first, including when it is the same room.
func (m *Membership) Join(id, roomName, displayName string) error {
	conn, ok := m.registry.Get(id)
	if !ok {
		return ErrUnknownConnection
	}

	m.leave(conn)

	if err := m.registry.SetDisplayName(id, displayName); err != nil {
		return err
	}

	room := m.rooms.GetOrCreate(roomName)
	room.add(conn)
	conn.room, conn.inRoom = roomName, true
	m.metrics.setRooms(m.rooms.Len())

	m.log.Info("joined room", "conn", id, "room", roomName, "displayName", displayName, "members", room.Len())

	m.broadcaster.SendTo(id, NewJoined(roomName, displayName))
	// The joiner is part of the room by now and receives its own announcement.
	m.broadcaster.Broadcast(roomName, NewUserJoined(id, displayName))
	return nil
}

// Leave removes the connection from its current room, if any, and announces
// the departure to the remaining members.
func (m *Membership) Leave(id string) {
	conn, ok := m.registry.Get(id)
	if !ok {
		return
	}
	m.leave(conn)
}

// Disconnect leaves the current room and unregisters the connection. No
// further operations are valid for id afterwards.
func (m *Membership) Disconnect(id string) {
	m.Leave(id)
	m.registry.Unregister(id)
	m.metrics.setConnections(m.registry.Len())
	m.log.Info("connection closed", "conn", id, "connections", m.registry.Len())
}

func (m *Membership) leave(conn *Connection) {
	roomName, inRoom := conn.Room()
	if !inRoom {
		return
	}

	conn.room, conn.inRoom = "", false

	room, ok := m.rooms.Get(roomName)
	if !ok {
		return
	}
	room.remove(conn.ID)
	remaining := room.Len()

	m.broadcaster.Broadcast(roomName, NewUserLeft(conn.ID))
	if m.rooms.RemoveIfEmpty(roomName) {
		m.log.Info("room removed", "room", roomName)
	}
	m.metrics.setRooms(m.rooms.Len())

	m.log.Info("left room", "conn", conn.ID, "room", roomName, "members", remaining)
}
