package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()

	a := reg.Register(&recordingSender{})
	b := reg.Register(&recordingSender{})

	require.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "", a.DisplayName())
	_, in := a.Room()
	assert.False(t, in)
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestRegistryRegisterSkipsTakenIDs(t *testing.T) {
	reg := NewRegistry()
	ids := []string{"dup", "dup", "fresh"}
	reg.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := reg.Register(nil)
	second := reg.Register(nil)

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestRegistrySetDisplayName(t *testing.T) {
	reg := NewRegistry()
	conn := reg.Register(nil)

	require.NoError(t, reg.SetDisplayName(conn.ID, "Alice"))
	assert.Equal(t, "Alice", conn.DisplayName())

	// Empty and duplicate names are accepted.
	require.NoError(t, reg.SetDisplayName(conn.ID, ""))
	other := reg.Register(nil)
	require.NoError(t, reg.SetDisplayName(other.ID, ""))

	assert.ErrorIs(t, reg.SetDisplayName("missing", "x"), ErrUnknownConnection)
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	conn := reg.Register(nil)

	reg.Unregister(conn.ID)
	_, ok := reg.Get(conn.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())

	reg.Unregister(conn.ID)
}

func TestRoomTableLifecycle(t *testing.T) {
	table := NewRoomTable()

	room := table.GetOrCreate("abc")
	assert.Same(t, room, table.GetOrCreate("abc"))
	assert.Equal(t, 1, table.Len())

	conn := &Connection{ID: "c1"}
	room.add(conn)
	assert.False(t, table.RemoveIfEmpty("abc"), "non-empty room stays")
	_, ok := table.Get("abc")
	assert.True(t, ok)

	room.remove("c1")
	assert.True(t, table.RemoveIfEmpty("abc"))
	_, ok = table.Get("abc")
	assert.False(t, ok)

	assert.False(t, table.RemoveIfEmpty("abc"), "absent room is a no-op")
}

func TestRoomTableNamesAreCaseSensitive(t *testing.T) {
	table := NewRoomTable()

	lower := table.GetOrCreate("abc")
	upper := table.GetOrCreate("ABC")

	assert.NotSame(t, lower, upper)
	assert.Equal(t, 2, table.Len())
}

func TestRoomTableSnapshot(t *testing.T) {
	table := NewRoomTable()
	table.GetOrCreate("b").add(&Connection{ID: "1"})
	a := table.GetOrCreate("a")
	a.add(&Connection{ID: "2"})
	a.add(&Connection{ID: "3"})

	assert.Equal(t, []RoomInfo{
		{Name: "a", Members: 2},
		{Name: "b", Members: 1},
	}, table.Snapshot())
}

func TestRoomMembersAreUniqueByID(t *testing.T) {
	room := newRoom("abc")
	conn := &Connection{ID: "c1"}

	room.add(conn)
	room.add(conn)

	assert.Equal(t, 1, room.Len())
	assert.True(t, room.Has("c1"))
	assert.Len(t, room.Members(), 1)
}
