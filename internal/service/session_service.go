package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/pion/webrtc/v4"
)

// RoomNotifier delivers room-scoped broadcasts. The gateway implements
// it on top of the socket pool; the service never touches sockets
// directly.
type RoomNotifier interface {
	// NewProducer is sent to every room member except the producing
	// socket itself.
	NewProducer(roomID string, producerID string, kind domain.MediaKind, exceptSocketID string)
	ProducerClosed(roomID string)
}

// SessionService owns transport lifecycle: creation, connection,
// producing, consuming and the cleanup paths (DTLS close, socket
// disconnect, forced room end).
type SessionService struct {
	rooms    domain.RoomStore
	router   domain.MediaRouter
	notifier RoomNotifier

	// alive reports whether a socket is still connected. Transport
	// creation re-checks it after the engine call returns, so a socket
	// that disconnected mid-creation never leaves an orphan behind.
	alive func(socketID string) bool
}

func NewSessionService(rooms domain.RoomStore, router domain.MediaRouter,
	notifier RoomNotifier, alive func(socketID string) bool) *SessionService {
	return &SessionService{
		rooms:    rooms,
		router:   router,
		notifier: notifier,
		alive:    alive,
	}
}

func (s *SessionService) JoinRoom(roomID string, socketID string) domain.RoomInfo {
	s.rooms.Join(roomID, socketID)
	info := s.rooms.GetOrCreate(roomID)
	slog.Info("socket joined room", "roomId", roomID, "socketId", socketID)
	return info
}

func (s *SessionService) CreateTransport(ctx context.Context, roomID string, socketID string, isProducer bool) (domain.TransportInfo, error) {
	if _, err := s.rooms.Get(roomID); err != nil {
		return domain.TransportInfo{}, err
	}

	role := domain.TransportRoleConsumer
	if isProducer {
		role = domain.TransportRoleProducer
	}

	handle, err := s.router.CreateTransport(ctx)
	if err != nil {
		metrics.TransportFailuresTotal.WithLabelValues("create").Inc()
		return domain.TransportInfo{}, err
	}

	// Engine-side creation can outlive the socket that asked for it.
	if !s.alive(socketID) {
		_ = handle.Close()
		metrics.TransportFailuresTotal.WithLabelValues("socket_gone").Inc()
		return domain.TransportInfo{}, domain.ErrSocketGone
	}

	transport := domain.NewTransport(roomID, role, socketID, handle)

	if isProducer {
		if old, ok := s.rooms.ProducerTransport(roomID); ok {
			slog.Warn("replacing producer transport", "roomId", roomID, "oldTransportId", old.ID, "newTransportId", transport.ID)
		}
		if err := s.rooms.SetProducerTransport(roomID, transport); err != nil {
			_ = handle.Close()
			return domain.TransportInfo{}, err
		}
	} else {
		if err := s.rooms.AddConsumer(roomID, transport); err != nil {
			_ = handle.Close()
			return domain.TransportInfo{}, err
		}
	}

	handle.OnDTLSStateChange(func(state webrtc.DTLSTransportState) {
		if state == webrtc.DTLSTransportStateClosed || state == webrtc.DTLSTransportStateFailed {
			slog.Info("transport DTLS closed, reaping", "roomId", roomID, "transportId", transport.ID, "state", state.String())
			s.reapTransport(transport)
		}
	})

	metrics.TransportsCreatedTotal.WithLabelValues(string(role)).Inc()
	metrics.ActiveTransports.WithLabelValues(string(role)).Inc()
	slog.Info("transport created", "roomId", roomID, "transportId", transport.ID, "role", role, "socketId", socketID)

	return handle.Info(), nil
}

func (s *SessionService) ConnectTransport(ctx context.Context, roomID string, transportID string, params domain.ConnectParameters) error {
	transport, err := s.rooms.TransportByID(roomID, transportID)
	if err != nil {
		return err
	}

	if err := transport.Handle.Connect(ctx, params); err != nil {
		metrics.TransportFailuresTotal.WithLabelValues("connect").Inc()
		return err
	}
	return nil
}

// Produce validates that the transport is the room's registered
// producer transport before touching the engine. A second produce on
// the same transport replaces the previous producer.
func (s *SessionService) Produce(ctx context.Context, roomID string, transportID string, socketID string,
	kind domain.MediaKind, rtp domain.RTPParameters) (string, error) {

	if _, err := s.rooms.Get(roomID); err != nil {
		return "", err
	}

	transport, ok := s.rooms.ProducerTransport(roomID)
	if !ok || transport.ID != transportID {
		return "", domain.ErrInvalidProducerTransport
	}

	producer, err := transport.Handle.Produce(ctx, kind, rtp)
	if err != nil {
		metrics.TransportFailuresTotal.WithLabelValues("produce").Inc()
		return "", err
	}

	if old := transport.SetProducer(producer); old != nil {
		slog.Info("replacing producer", "roomId", roomID, "oldProducerId", old.ID())
		if err := old.Close(); err != nil {
			slog.Warn("failed to close replaced producer", "producerId", old.ID(), "error", err)
		}
	}

	slog.Info("producer created", "roomId", roomID, "producerId", producer.ID(), "kind", kind)
	s.notifier.NewProducer(roomID, producer.ID(), kind, socketID)

	return producer.ID(), nil
}

func (s *SessionService) Consume(ctx context.Context, roomID string, transportID string,
	producerID string, caps domain.RTPCapabilities) (domain.Consumer, error) {

	if _, err := s.rooms.Get(roomID); err != nil {
		return nil, err
	}

	if !s.router.CanConsume(producerID, caps) {
		return nil, domain.ErrIncompatibleCapabilities
	}

	transport, err := s.rooms.TransportByID(roomID, transportID)
	if err != nil || transport.Role != domain.TransportRoleConsumer {
		return nil, domain.ErrConsumerTransportNotFound
	}

	// Consumers start paused; the client resumes once its receiving
	// pipeline is ready.
	consumer, err := transport.Handle.Consume(ctx, producerID, caps, true)
	if err != nil {
		metrics.TransportFailuresTotal.WithLabelValues("consume").Inc()
		return nil, err
	}

	transport.AddConsumer(consumer)
	slog.Info("consumer created", "roomId", roomID, "consumerId", consumer.ID(), "producerId", producerID)

	return consumer, nil
}

// Resume searches every consumer transport in the room for the
// consumer. An unknown id is deliberately a successful no-op: the
// consumer may have been reaped between creation and resume.
func (s *SessionService) Resume(roomID string, consumerID string) error {
	if _, err := s.rooms.Get(roomID); err != nil {
		return err
	}

	for _, transport := range s.rooms.ConsumerTransports(roomID) {
		if consumer, ok := transport.FindConsumer(consumerID); ok {
			return consumer.Resume()
		}
	}

	slog.Debug("resume for unknown consumer ignored", "roomId", roomID, "consumerId", consumerID)
	return nil
}

// DisconnectSocket sweeps every transport the socket owns, across all
// rooms, then drops its memberships. A close failure on one transport
// never stops the sweep.
func (s *SessionService) DisconnectSocket(socketID string) {
	for _, transport := range s.rooms.TransportsOwnedBy(socketID) {
		s.reapTransport(transport)
	}

	for _, roomID := range s.rooms.LeaveAll(socketID) {
		slog.Info("socket left room", "roomId", roomID, "socketId", socketID)
	}
}

// EndRoom force-closes everything in the room and drops it. Used when a
// stream is ended through the REST API or by an admin.
func (s *SessionService) EndRoom(roomID string) {
	if transport, ok := s.rooms.ProducerTransport(roomID); ok {
		s.reapTransport(transport)
	}
	for _, transport := range s.rooms.ConsumerTransports(roomID) {
		s.reapTransport(transport)
	}
	s.rooms.Evict(roomID)
	slog.Info("room ended", "roomId", roomID)
}

// EvictIdleRooms drops rooms with no transports and no members that
// have been quiet longer than the grace period.
func (s *SessionService) EvictIdleRooms(grace time.Duration) {
	for _, roomID := range s.rooms.EvictIdle(grace) {
		slog.Info("evicted idle room", "roomId", roomID)
	}
}

// reapTransport unregisters and closes one transport. The DTLS state
// callback and the disconnect sweep can race here; removal from the
// store is one atomic step, so exactly one caller wins and does the
// close, metrics and broadcast.
func (s *SessionService) reapTransport(t *domain.Transport) {
	if !s.rooms.RemoveTransport(t.RoomID, t.ID) {
		return
	}

	hadProducer := t.Role == domain.TransportRoleProducer && t.Producer() != nil

	if err := t.Handle.Close(); err != nil {
		slog.Warn("failed to close transport", "roomId", t.RoomID, "transportId", t.ID, "error", err)
	}
	metrics.ActiveTransports.WithLabelValues(string(t.Role)).Dec()

	if hadProducer {
		slog.Info("producer transport reaped", "roomId", t.RoomID, "transportId", t.ID)
		s.notifier.ProducerClosed(t.RoomID)
	}
}
