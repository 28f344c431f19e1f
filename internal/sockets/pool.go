package sockets

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

type SocketPool struct {
	mutex   sync.Mutex
	sockets map[SocketID]Socket
}

func NewSocketPool() *SocketPool {
	return &SocketPool{
		sockets: make(map[SocketID]Socket),
	}
}

func (p *SocketPool) AddSocket(conn *websocket.Conn) Socket {
	soc := NewSocket(conn)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if old, contains := p.sockets[soc.ID()]; contains {
		_ = old.Close()
	}
	p.sockets[soc.ID()] = soc
	return soc
}

func (p *SocketPool) GetSocket(id SocketID) Socket {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if soc, contains := p.sockets[id]; contains {
		return soc
	}
	return nil
}

// Contains reports whether the socket is still registered. Asynchronous
// continuations use this as a liveness check before committing registry
// mutations for a socket that may have disconnected mid-flight.
func (p *SocketPool) Contains(id SocketID) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	_, contains := p.sockets[id]
	return contains
}

func (p *SocketPool) CloseSocket(id SocketID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if old, contains := p.sockets[id]; contains {
		_ = old.Close()
		delete(p.sockets, id)
	}
}

func (p *SocketPool) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, soc := range p.sockets {
		_ = soc.Close()
	}
	p.sockets = make(map[SocketID]Socket)
}
