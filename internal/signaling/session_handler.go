package signaling

import (
	"log/slog"

	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/courtside/stream-relay/internal/sockets"
	"github.com/gofiber/contrib/websocket"
)

type Session struct {
	Socket   sockets.Socket
	SocketID sockets.SocketID
	Cleanup  func()
}

type SessionHandler struct {
	pool *sockets.SocketPool
}

func NewSessionHandler(pool *sockets.SocketPool) *SessionHandler {
	return &SessionHandler{pool: pool}
}

func (h *SessionHandler) RegisterSession(conn *websocket.Conn) *Session {
	socketID := sockets.IDFor(conn)
	socket := h.pool.AddSocket(conn)

	metrics.ActiveWebSocketConnections.Inc()
	metrics.WebSocketConnectionsTotal.Inc()

	cleanup := func() {
		metrics.ActiveWebSocketConnections.Dec()
		metrics.WebSocketDisconnectionsTotal.Inc()
		h.pool.CloseSocket(socketID)
	}

	slog.Info("signaling session started", "socketId", socketID)

	return &Session{
		Socket:   socket,
		SocketID: socketID,
		Cleanup:  cleanup,
	}
}
