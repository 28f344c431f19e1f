package signaling

import (
	"log/slog"

	"github.com/courtside/stream-relay/internal/api"
	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/courtside/stream-relay/internal/sockets"
)

// socketDirectory resolves a socket id to a live socket. Satisfied by
// sockets.SocketPool.
type socketDirectory interface {
	GetSocket(id sockets.SocketID) sockets.Socket
}

// roomBroadcaster fans server events out to the sockets of a room's
// members. It implements service.RoomNotifier on top of the socket
// pool, so the service layer stays free of transport concerns.
type roomBroadcaster struct {
	rooms domain.RoomStore
	pool  socketDirectory
}

func newRoomBroadcaster(rooms domain.RoomStore, pool socketDirectory) *roomBroadcaster {
	return &roomBroadcaster{rooms: rooms, pool: pool}
}

func (b *roomBroadcaster) NewProducer(roomID string, producerID string, kind domain.MediaKind, exceptSocketID string) {
	b.broadcast(roomID, exceptSocketID, &api.ServerMessage{
		Event: api.ServerEventNewProducer,
		NewProducer: &api.NewProducerEvent{
			ProducerID: producerID,
			Kind:       string(kind),
		},
	})
}

func (b *roomBroadcaster) ProducerClosed(roomID string) {
	b.broadcast(roomID, "", &api.ServerMessage{
		Event: api.ServerEventProducerClosed,
	})
}

func (b *roomBroadcaster) broadcast(roomID string, exceptSocketID string, message *api.ServerMessage) {
	for _, member := range b.rooms.Members(roomID) {
		if member == exceptSocketID {
			continue
		}

		socket := b.pool.GetSocket(sockets.SocketID(member))
		if socket == nil {
			continue
		}

		if err := socket.WriteJSON(message); err != nil {
			slog.Warn("failed to broadcast to room member", "roomId", roomID, "socketId", member, "event", message.Event, "error", err)
			continue
		}
		metrics.SignalingMessagesTotal.WithLabelValues(string(message.Event), "out").Inc()
	}
}
