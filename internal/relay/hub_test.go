package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logging.Discard(), NewMetrics())
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return hub
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHubConnectAssignsIDAndWelcomes(t *testing.T) {
	hub := startHub(t)
	sender := &recordingSender{}

	id, err := hub.Connect(testContext(t), sender)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	welcome := sender.ofType(t, TypeWelcome)
	require.Len(t, welcome, 1)
	assert.Equal(t, id, welcome[0]["userId"])

	n, err := hub.ConnectionCount(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHubEventsAreProcessedInOrder(t *testing.T) {
	hub := startHub(t)
	ctx := testContext(t)
	alice, bob := &recordingSender{}, &recordingSender{}
	aliceID, err := hub.Connect(ctx, alice)
	require.NoError(t, err)
	bobID, err := hub.Connect(ctx, bob)
	require.NoError(t, err)

	hub.Receive(aliceID, []byte(`{"type":"join","room":"abc","displayName":"Alice"}`))
	hub.Receive(bobID, []byte(`{"type":"join","room":"abc","displayName":"Bob"}`))
	hub.Receive(bobID, []byte(`{"type":"message","text":"hi"}`))

	rooms, err := hub.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RoomInfo{{Name: "abc", Members: 2}}, rooms)

	msgs := alice.ofType(t, TypeMessage)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0]["text"])
	assert.Equal(t, bobID, msgs[0]["userId"])

	hub.Disconnect(aliceID)
	hub.Disconnect(bobID)
	rooms, err = hub.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Len(t, bob.ofType(t, TypeUserLeft), 1)
}

func TestHubConcurrentClients(t *testing.T) {
	hub := startHub(t)
	ctx := testContext(t)

	const clients = 20
	rooms := []string{"red", "green", "blue"}
	var wg sync.WaitGroup
	wg.Add(clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := hub.Connect(ctx, &recordingSender{})
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j < 5; j++ {
				room := rooms[(i+j)%len(rooms)]
				hub.Receive(id, []byte(fmt.Sprintf(`{"type":"join","room":%q,"displayName":"u%d"}`, room, i)))
				hub.Receive(id, []byte(`{"type":"message","text":"x"}`))
			}
			hub.Disconnect(id)
		}(i)
	}
	wg.Wait()

	got, err := hub.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	n, err := hub.ConnectionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub := NewHub(logging.Discard(), nil)
	go hub.Run()

	sender := &recordingSender{}
	_, err := hub.Connect(testContext(t), sender)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.True(t, sender.isClosed())

	select {
	case <-hub.Done():
	default:
		t.Fatal("Done not closed after Shutdown")
	}
}

func TestHubCallsAfterShutdown(t *testing.T) {
	hub := NewHub(logging.Discard(), nil)
	go hub.Run()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))

	_, err := hub.Connect(context.Background(), &recordingSender{})
	assert.ErrorIs(t, err, ErrHubClosed)
	_, err = hub.Rooms(context.Background())
	assert.ErrorIs(t, err, ErrHubClosed)

	done := make(chan struct{})
	go func() {
		hub.Receive("x", []byte(`{}`))
		hub.Disconnect("x")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Receive/Disconnect blocked after shutdown")
	}
}

func TestHubShutdownTimesOutWhenNotRunning(t *testing.T) {
	hub := NewHub(logging.Discard(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, hub.Shutdown(ctx), context.DeadlineExceeded)
}

func TestHubSurvivesPanickingEvent(t *testing.T) {
	hub := startHub(t)
	ctx := testContext(t)

	require.NoError(t, hub.submit(ctx, func(*Router) { panic("boom") }))

	_, err := hub.Connect(ctx, &recordingSender{})
	assert.NoError(t, err)
}
