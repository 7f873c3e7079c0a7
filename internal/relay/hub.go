package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ErrHubClosed is returned by Hub calls made after Shutdown.
var ErrHubClosed = errors.New("hub closed")

const eventQueueSize = 256

// event is one unit of work executed on the hub goroutine.
type event func(*Router)

// Hub serializes every connection event (connect, inbound frame, disconnect)
// and every state query onto a single goroutine that owns the Router. Each
// event runs to completion before the next one starts, which makes every
// membership transition and its announcements atomic with respect to
// concurrent joins, leaves and sends.
type Hub struct {
	router *Router
	log    *slog.Logger
	events chan event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub with an empty relay state. Call Run in its own
// goroutine before submitting events. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		router: NewRouter(logger, metrics),
		log:    logger,
		events: make(chan event, eventQueueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Run processes events until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)
	h.log.Info("hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.closeConnections()
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("recovered from panic in hub event", "panic", r)
		}
	}()
	ev(h.router)
}

// submit enqueues ev unless the hub is shutting down or ctx is done.
func (h *Hub) submit(ctx context.Context, ev event) error {
	select {
	case <-h.ctx.Done():
		return ErrHubClosed
	default:
	}

	select {
	case h.events <- ev:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn on the hub goroutine and waits for its result.
func query[T any](ctx context.Context, h *Hub, fn func(*Router) T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if err := h.submit(ctx, func(r *Router) { reply <- fn(r) }); err != nil {
		return zero, err
	}

	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Connect registers sender as a new connection, sends it the welcome
// envelope and returns the assigned connection id.
func (h *Hub) Connect(ctx context.Context, sender Sender) (string, error) {
	reply := make(chan string, 1)
	err := h.submit(ctx, func(r *Router) { reply <- r.HandleConnect(sender).ID })
	if err != nil {
		return "", err
	}

	select {
	case id := <-reply:
		return id, nil
	case <-h.done:
		return "", ErrHubClosed
	case <-ctx.Done():
		// The registration may still land; undo it once it does.
		go func() {
			select {
			case id := <-reply:
				h.Disconnect(id)
			case <-h.done:
			}
		}()
		return "", ctx.Err()
	}
}

// Receive enqueues an inbound frame from the connection id.
func (h *Hub) Receive(id string, frame []byte) {
	if err := h.submit(context.Background(), func(r *Router) { r.HandleFrame(id, frame) }); err != nil {
		h.log.Debug("dropping frame", "conn", id, "err", err)
	}
}

// Disconnect enqueues the leave and unregister sequence for id.
func (h *Hub) Disconnect(id string) {
	if err := h.submit(context.Background(), func(r *Router) { r.HandleDisconnect(id) }); err != nil {
		h.log.Debug("dropping disconnect", "conn", id, "err", err)
	}
}

// Rooms returns a snapshot of the live rooms.
func (h *Hub) Rooms(ctx context.Context) ([]RoomInfo, error) {
	return query(ctx, h, func(r *Router) []RoomInfo { return r.rooms.Snapshot() })
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount(ctx context.Context) (int, error) {
	return query(ctx, h, func(r *Router) int { return r.registry.Len() })
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Shutdown stops the event loop, closes every live connection and waits for
// Run to return or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.log.Info("initiating hub shutdown")
	h.cancel()

	select {
	case <-h.done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.log.Warn("hub shutdown timed out")
		return ctx.Err()
	}
}

// closeConnections closes the transport of every registered connection.
// Runs on the hub goroutine.
func (h *Hub) closeConnections() {
	closed := 0
	h.router.registry.Each(func(conn *Connection) {
		closer, ok := conn.sender.(io.Closer)
		if !ok {
			return
		}
		if err := closer.Close(); err != nil {
			h.log.Debug("error closing connection", "conn", conn.ID, "err", err)
		}
		closed++
	})
	h.log.Info("closed client connections", "count", closed)
}
