// Package hub routes task status pushes to connected clients.
//
// A Hub maps each client identity to one live connection and each task to the
// one identity awaiting its next update. A subscription is consumed by the
// first push delivered for it; the client must subscribe again to receive
// another. Pushes without a subscriber are dropped, the task record remains
// the durable source of truth.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned when connecting to a hub that has been shut down.
	ErrClosed = errors.New("hub is shut down")

	// ErrInvalidMessage is returned for client messages that cannot be handled.
	ErrInvalidMessage = errors.New("invalid client message")

	// ErrNotConnected is returned when replying to an identity with no connection.
	ErrNotConnected = errors.New("identity is not connected")

	// ErrSubscriptionDenied is returned when the authorizer refuses a subscribe request.
	ErrSubscriptionDenied = errors.New("subscription denied")
)

// Authorizer decides whether identity may receive updates for taskID.
// A non-nil error refuses the subscription.
type Authorizer func(ctx context.Context, taskID, identity uuid.UUID) error

// Option configures a Hub.
type Option func(*Hub)

// WithAuthorizer checks every subscribe request with authorize.
func WithAuthorizer(authorize Authorizer) Option {
	return func(h *Hub) {
		h.authorize = authorize
	}
}

// Conn is a live push channel to one client.
// Implementations need not be safe for concurrent writes; the hub
// serializes writes per connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// client wraps a Conn with its own write lock.
type client struct {
	conn    Conn
	writeMu sync.Mutex
}

func (c *client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub is the in-memory registry of connections and task subscriptions.
// It is safe for concurrent use.
type Hub struct {
	mu            sync.RWMutex
	connections   map[uuid.UUID]*client
	subscriptions map[uuid.UUID]uuid.UUID // task id -> identity
	closed        bool

	authorize Authorizer
	logger    *slog.Logger
}

// New creates an empty Hub. Without WithAuthorizer any connected identity
// may subscribe to any task.
func New(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		connections:   make(map[uuid.UUID]*client),
		subscriptions: make(map[uuid.UUID]uuid.UUID),
		logger:        logger.With("component", "notification_hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers conn for identity. A previous connection for the same
// identity is closed and replaced; its subscriptions carry over.
func (h *Hub) Connect(identity uuid.UUID, conn Conn) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	previous := h.connections[identity]
	h.connections[identity] = &client{conn: conn}
	h.mu.Unlock()

	if previous != nil {
		h.logger.Debug("connection superseded", "identity", identity)
		_ = previous.conn.Close()
	}
	h.logger.Debug("client connected", "identity", identity)
	return nil
}

// Disconnect closes identity's connection and drops all of its subscriptions.
func (h *Hub) Disconnect(identity uuid.UUID) {
	h.mu.Lock()
	c := h.connections[identity]
	h.removeLocked(identity)
	h.mu.Unlock()

	if c != nil {
		_ = c.conn.Close()
		h.logger.Debug("client disconnected", "identity", identity)
	}
}

// DisconnectConn disconnects identity only if conn is still its current
// connection. Read loops of superseded connections use it so they do not
// tear down their replacement.
func (h *Hub) DisconnectConn(identity uuid.UUID, conn Conn) {
	h.mu.Lock()
	c := h.connections[identity]
	if c == nil || c.conn != conn {
		h.mu.Unlock()
		return
	}
	h.removeLocked(identity)
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Debug("client disconnected", "identity", identity)
}

// dropClient disconnects identity after a failed send on c.
func (h *Hub) dropClient(identity uuid.UUID, c *client, err error) {
	h.mu.Lock()
	if h.connections[identity] != c {
		h.mu.Unlock()
		return
	}
	h.removeLocked(identity)
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Warn("dropped connection after send failure",
		"identity", identity,
		"error", err)
}

// removeLocked deletes identity's connection and subscriptions.
// h.mu must be held for writing.
func (h *Hub) removeLocked(identity uuid.UUID) {
	delete(h.connections, identity)
	for taskID, subscriber := range h.subscriptions {
		if subscriber == identity {
			delete(h.subscriptions, taskID)
		}
	}
}

// Subscribe records that identity awaits the next update for taskID,
// replacing any previous subscriber of that task.
func (h *Hub) Subscribe(taskID, identity uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.subscriptions[taskID] = identity
}

// Push delivers update to the task's subscriber and consumes the
// subscription. It reports whether a message was delivered; an update with
// no connected subscriber is dropped. A send failure disconnects the
// subscriber.
func (h *Hub) Push(ctx context.Context, update TaskUpdate) bool {
	if update.Type == "" {
		update.Type = TypeTaskUpdate
	}

	h.mu.Lock()
	identity, ok := h.subscriptions[update.TaskID]
	if !ok {
		h.mu.Unlock()
		h.logger.DebugContext(ctx, "no subscriber for task update",
			"task_id", update.TaskID,
			"status", update.Status)
		return false
	}
	c := h.connections[identity]
	if c == nil {
		h.mu.Unlock()
		h.logger.DebugContext(ctx, "subscriber not connected",
			"task_id", update.TaskID,
			"identity", identity)
		return false
	}
	delete(h.subscriptions, update.TaskID)
	h.mu.Unlock()

	if err := c.send(update); err != nil {
		h.dropClient(identity, c, err)
		return false
	}

	h.logger.DebugContext(ctx, "task update delivered",
		"task_id", update.TaskID,
		"identity", identity,
		"status", update.Status)
	return true
}

// RunHeartbeat sends a heartbeat to every connection each interval until
// ctx is done. A failed send disconnects only that connection.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.heartbeat()
		}
	}
}

func (h *Hub) heartbeat() {
	type target struct {
		identity uuid.UUID
		client   *client
	}

	h.mu.RLock()
	targets := make([]target, 0, len(h.connections))
	for identity, c := range h.connections {
		targets = append(targets, target{identity: identity, client: c})
	}
	h.mu.RUnlock()

	msg := Heartbeat{Type: TypeHeartbeat}
	for _, t := range targets {
		if err := t.client.send(msg); err != nil {
			h.dropClient(t.identity, t.client, err)
		}
	}
}

// HandleMessage processes one control message received from identity.
// Subscribe requests are acknowledged with a subscribed message and
// heartbeats are echoed. Unknown types are ignored.
func (h *Hub) HandleMessage(ctx context.Context, identity uuid.UUID, raw []byte) error {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case TypeSubscribe:
		taskID, err := uuid.Parse(msg.TaskID)
		if err != nil {
			return fmt.Errorf("%w: task_id %q is not a valid id", ErrInvalidMessage, msg.TaskID)
		}
		if h.authorize != nil {
			if err := h.authorize(ctx, taskID, identity); err != nil {
				h.logger.DebugContext(ctx, "subscription refused",
					"task_id", taskID, "identity", identity, "error", err)
				if rErr := h.reply(identity, ErrorMessage{
					Type:    TypeError,
					TaskID:  taskID,
					Message: "task not found",
				}); rErr != nil {
					return rErr
				}
				return fmt.Errorf("%w: %v", ErrSubscriptionDenied, err)
			}
		}
		h.Subscribe(taskID, identity)
		h.logger.DebugContext(ctx, "task subscribed", "task_id", taskID, "identity", identity)
		return h.reply(identity, Subscribed{Type: TypeSubscribed, TaskID: taskID})
	case TypeHeartbeat:
		return h.reply(identity, Heartbeat{Type: TypeHeartbeat})
	default:
		h.logger.DebugContext(ctx, "ignoring client message", "type", msg.Type, "identity", identity)
		return nil
	}
}

func (h *Hub) reply(identity uuid.UUID, v any) error {
	h.mu.RLock()
	c := h.connections[identity]
	h.mu.RUnlock()
	if c == nil {
		return ErrNotConnected
	}
	if err := c.send(v); err != nil {
		h.dropClient(identity, c, err)
		return err
	}
	return nil
}

// Shutdown closes every connection and clears all state. Later Connect
// calls fail with ErrClosed.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.connections))
	for _, c := range h.connections {
		clients = append(clients, c)
	}
	h.connections = make(map[uuid.UUID]*client)
	h.subscriptions = make(map[uuid.UUID]uuid.UUID)
	h.closed = true
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	h.logger.Info("notification hub shut down", "closed_connections", len(clients))
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
