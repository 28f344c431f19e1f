package signaling

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/courtside/stream-relay/internal/api"
	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/courtside/stream-relay/internal/service"
	"github.com/courtside/stream-relay/internal/sockets"
	"github.com/gofiber/contrib/websocket"
)

var errMissingPayload = errors.New("missing event payload")

// Gateway is the WebSocket side of the relay. Every client message gets
// exactly one acknowledgement carrying the request's event name;
// newProducer and producerClosed arrive as unsolicited broadcasts via
// the roomBroadcaster.
type Gateway struct {
	sessions *service.SessionService
	handler  *SessionHandler
	pcConfig func() api.PeerConnectionConfig
}

func NewGateway(sessions *service.SessionService, handler *SessionHandler,
	pcConfig func() api.PeerConnectionConfig) *Gateway {
	return &Gateway{
		sessions: sessions,
		handler:  handler,
		pcConfig: pcConfig,
	}
}

// Listen drives one client connection until it closes. It blocks for
// the lifetime of the socket.
func (g *Gateway) Listen(conn *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in signaling socket handler", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	session := g.handler.RegisterSession(conn)
	defer func() {
		g.sessions.DisconnectSocket(string(session.SocketID))
		session.Cleanup()
	}()

	if err := session.Socket.WriteJSON(api.ServerMessage{
		Event: api.ServerEventInit,
		Init:  &api.InitMessage{PcConfig: g.pcConfig()},
	}); err != nil {
		slog.Error("failed to send init", "socketId", session.SocketID, "error", err)
		return
	}

	var message api.ClientMessage
	for {
		if err := session.Socket.ReadJSON(&message); err != nil {
			slog.Info("socket disconnected", "socketId", session.SocketID, "reason", err.Error())
			return
		}
		metrics.SignalingMessagesTotal.WithLabelValues(string(message.Event), "in").Inc()

		answer := g.handleMessage(session.SocketID, message)
		if answer == nil {
			continue
		}
		if err := session.Socket.WriteJSON(answer); err != nil {
			slog.Error("failed to send answer", "socketId", session.SocketID, "event", answer.Event, "error", err)
			return
		}
		metrics.SignalingMessagesTotal.WithLabelValues(string(answer.Event), "out").Inc()
	}
}

func (g *Gateway) handleMessage(socketID sockets.SocketID, m api.ClientMessage) *api.ServerMessage {
	ctx := context.Background()

	switch m.Event {
	case api.ClientEventJoinRoom:
		if m.JoinRoom == nil {
			return api.Failed(api.ServerEventJoinRoom, errMissingPayload)
		}
		g.sessions.JoinRoom(m.JoinRoom.RoomID, string(socketID))
		return api.Ok(api.ServerEventJoinRoom)

	case api.ClientEventCreateTransport:
		if m.CreateTransport == nil {
			return api.Failed(api.ServerEventCreateTransport, errMissingPayload)
		}
		info, err := g.sessions.CreateTransport(ctx, m.CreateTransport.RoomID, string(socketID), m.CreateTransport.IsProducer)
		if err != nil {
			return api.Failed(api.ServerEventCreateTransport, err)
		}
		answer := api.Ok(api.ServerEventCreateTransport)
		answer.Transport = api.ToTransportCreated(info)
		return answer

	case api.ClientEventConnectTransport:
		if m.ConnectTransport == nil {
			return api.Failed(api.ServerEventConnectTransport, errMissingPayload)
		}
		err := g.sessions.ConnectTransport(ctx, m.ConnectTransport.RoomID, m.ConnectTransport.TransportID,
			domain.ConnectParameters{
				DTLS:       m.ConnectTransport.DTLSParameters,
				ICE:        m.ConnectTransport.ICEParameters,
				Candidates: m.ConnectTransport.ICECandidates,
			})
		if err != nil {
			return api.Failed(api.ServerEventConnectTransport, err)
		}
		return api.Ok(api.ServerEventConnectTransport)

	case api.ClientEventProduce:
		if m.Produce == nil {
			return api.Failed(api.ServerEventProduce, errMissingPayload)
		}
		producerID, err := g.sessions.Produce(ctx, m.Produce.RoomID, m.Produce.TransportID, string(socketID),
			domain.MediaKind(m.Produce.Kind), api.ToDomainRTPParameters(m.Produce.RTPParameters))
		if err != nil {
			return api.Failed(api.ServerEventProduce, err)
		}
		answer := api.Ok(api.ServerEventProduce)
		answer.Produced = &api.ProducedAck{ID: producerID}
		return answer

	case api.ClientEventConsume:
		if m.Consume == nil {
			return api.Failed(api.ServerEventConsume, errMissingPayload)
		}
		consumer, err := g.sessions.Consume(ctx, m.Consume.RoomID, m.Consume.TransportID,
			m.Consume.ProducerID, api.ToDomainRTPCapabilities(m.Consume.RTPCapabilities))
		if err != nil {
			return api.Failed(api.ServerEventConsume, err)
		}
		answer := api.Ok(api.ServerEventConsume)
		answer.Consumed = &api.ConsumedAck{
			ID:            consumer.ID(),
			ProducerID:    consumer.ProducerID(),
			Kind:          string(consumer.Kind()),
			RTPParameters: api.ToApiRTPParameters(consumer.RTPParameters()),
		}
		return answer

	case api.ClientEventResume:
		if m.Resume == nil {
			return api.Failed(api.ServerEventResume, errMissingPayload)
		}
		if err := g.sessions.Resume(m.Resume.RoomID, m.Resume.ConsumerID); err != nil {
			return api.Failed(api.ServerEventResume, err)
		}
		return api.Ok(api.ServerEventResume)
	}

	slog.Warn("unknown client event", "socketId", socketID, "event", m.Event)
	return api.Failed(api.ServerEvent(m.Event), errors.New("unknown event"))
}
