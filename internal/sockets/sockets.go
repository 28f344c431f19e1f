package sockets

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// SocketID identifies one connected client for the lifetime of its
// WebSocket connection. The remote address is unique per connection,
// which is all the registry needs to tie transports to their owner.
type SocketID string

func IDFor(conn *websocket.Conn) SocketID {
	return SocketID(conn.NetConn().RemoteAddr().String())
}

// Socket is a concurrency-safe view of one WebSocket connection.
// Reads stay on the connection's own goroutine; writes may come from
// any goroutine (broadcasts, engine callbacks), hence the write lock.
type Socket interface {
	ID() SocketID
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

type socketImpl struct {
	id      SocketID
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewSocket(conn *websocket.Conn) Socket {
	return &socketImpl{id: IDFor(conn), ws: conn}
}

func (s *socketImpl) ID() SocketID {
	return s.id
}

func (s *socketImpl) WriteJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *socketImpl) ReadJSON(v interface{}) error {
	return s.ws.ReadJSON(v)
}

func (s *socketImpl) Close() error {
	return s.ws.Close()
}
