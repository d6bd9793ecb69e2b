package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/hub"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
	"github.com/phrazzld/atelier-api/internal/service/auth"
)

// CloseInvalidToken is the close code sent when the token query parameter
// does not authenticate.
const CloseInvalidToken = 4001

// maxClientMessageBytes bounds control messages read from clients.
const maxClientMessageBytes = 4096

// TaskOwnerReader returns a task only to its owner.
type TaskOwnerReader interface {
	Get(ctx context.Context, id, owner uuid.UUID) (*domain.GenerationTask, error)
}

// OwnerAuthorizer lets an identity subscribe only to tasks it owns.
func OwnerAuthorizer(tasks TaskOwnerReader) hub.Authorizer {
	return func(ctx context.Context, taskID, identity uuid.UUID) error {
		_, err := tasks.Get(ctx, taskID, identity)
		return err
	}
}

// TaskSocketHandler upgrades GET /ws/tasks requests and attaches the
// connection to the notification hub.
type TaskSocketHandler struct {
	hub          *hub.Hub
	jwtService   auth.JWTService
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewTaskSocketHandler creates a new TaskSocketHandler.
func NewTaskSocketHandler(
	h *hub.Hub,
	jwtService auth.JWTService,
	writeTimeout time.Duration,
	logger *slog.Logger,
) *TaskSocketHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskSocketHandler")
	}

	return &TaskSocketHandler{
		hub:        h,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The token query parameter authenticates, not the origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		logger:       logger.With(slog.String("component", "task_socket_handler")),
	}
}

// ServeHTTP authenticates the ?token parameter, registers the connection
// and serves client control messages until the connection ends.
func (h *TaskSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	conn := newSocketConn(ws, h.writeTimeout)

	claims, err := h.jwtService.ValidateToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		log.Debug("rejected websocket token", slog.String("error", err.Error()))
		conn.closeWith(CloseInvalidToken, "invalid token")
		return
	}
	identity := claims.UserID
	log = log.With(slog.String("user_id", identity.String()))

	if err := h.hub.Connect(identity, conn); err != nil {
		log.Debug("hub refused connection", slog.String("error", err.Error()))
		conn.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.hub.DisconnectConn(identity, conn)

	ws.SetReadLimit(maxClientMessageBytes)
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if err := h.hub.HandleMessage(r.Context(), identity, msg); err != nil {
			log.Debug("client message not handled", slog.String("error", err.Error()))
		}
	}
}

// socketConn adapts a websocket connection to hub.Conn.
type socketConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
}

var _ hub.Conn = (*socketConn)(nil)

func newSocketConn(ws *websocket.Conn, writeTimeout time.Duration) *socketConn {
	return &socketConn{ws: ws, writeTimeout: writeTimeout}
}

// WriteJSON writes v as one text frame within the write timeout.
func (c *socketConn) WriteJSON(v any) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteJSON(v)
}

// Close sends a normal close frame and closes the connection. Repeated
// calls are no-ops.
func (c *socketConn) Close() error {
	c.closeWith(websocket.CloseNormalClosure, "")
	return nil
}

func (c *socketConn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		timeout := c.writeTimeout
		if timeout <= 0 {
			timeout = time.Second
		}
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(timeout),
		)
		_ = c.ws.Close()
	})
}
