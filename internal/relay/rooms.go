package relay

import "sort"

// Room is a named group of connections. Rooms are created on first join and
// removed from the RoomTable on last leave.
type Room struct {
	Name    string
	members map[string]*Connection
}

func newRoom(name string) *Room {
	return &Room{Name: name, members: make(map[string]*Connection)}
}

func (r *Room) add(conn *Connection) {
	r.members[conn.ID] = conn
}

func (r *Room) remove(id string) {
	delete(r.members, id)
}

// Has reports whether the connection with the given id is a member.
func (r *Room) Has(id string) bool {
	_, ok := r.members[id]
	return ok
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// Members returns a snapshot of the current members in no particular order.
func (r *Room) Members() []*Connection {
	members := make([]*Connection, 0, len(r.members))
	for _, conn := range r.members {
		members = append(members, conn)
	}
	return members
}

// RoomInfo is a read-only summary of a room.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// RoomTable maps room names to rooms. It never holds an empty room once a
// departure has been followed by RemoveIfEmpty. Not safe for concurrent use.
type RoomTable struct {
	rooms map[string]*Room
}

// NewRoomTable returns an empty table.
func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the named room, inserting an empty one if absent.
func (t *RoomTable) GetOrCreate(name string) *Room {
	room, ok := t.rooms[name]
	if !ok {
		room = newRoom(name)
		t.rooms[name] = room
	}
	return room
}

// RemoveIfEmpty deletes the named room iff it has no members and reports
// whether it was deleted.
func (t *RoomTable) RemoveIfEmpty(name string) bool {
	room, ok := t.rooms[name]
	if !ok || room.Len() > 0 {
		return false
	}
	delete(t.rooms, name)
	return true
}

// Get looks up a room by exact name.
func (t *RoomTable) Get(name string) (*Room, bool) {
	room, ok := t.rooms[name]
	return room, ok
}

// Len returns the number of rooms.
func (t *RoomTable) Len() int {
	return len(t.rooms)
}

// Snapshot lists every room with its member count, sorted by name.
func (t *RoomTable) Snapshot() []RoomInfo {
	infos := make([]RoomInfo, 0, len(t.rooms))
	for name, room := range t.rooms {
		infos = append(infos, RoomInfo{Name: name, Members: room.Len()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
