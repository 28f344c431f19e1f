package signaling

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/courtside/stream-relay/internal/api"
	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/repository/memory"
	"github.com/courtside/stream-relay/internal/service"
	"github.com/courtside/stream-relay/internal/sockets"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	id   sockets.SocketID
	sent []api.ServerMessage
}

func (s *fakeSocket) ID() sockets.SocketID { return s.id }
func (s *fakeSocket) WriteJSON(v interface{}) error {
	switch msg := v.(type) {
	case *api.ServerMessage:
		s.sent = append(s.sent, *msg)
	case api.ServerMessage:
		s.sent = append(s.sent, msg)
	}
	return nil
}
func (s *fakeSocket) ReadJSON(v interface{}) error { return io.EOF }
func (s *fakeSocket) Close() error                 { return nil }

func (s *fakeSocket) messagesFor(event api.ServerEvent) []api.ServerMessage {
	var out []api.ServerMessage
	for _, m := range s.sent {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

type fakeDirectory struct {
	sockets map[sockets.SocketID]*fakeSocket
}

func (d *fakeDirectory) GetSocket(id sockets.SocketID) sockets.Socket {
	if s, ok := d.sockets[id]; ok {
		return s
	}
	return nil
}

func (d *fakeDirectory) add(id string) *fakeSocket {
	s := &fakeSocket{id: sockets.SocketID(id)}
	d.sockets[sockets.SocketID(id)] = s
	return s
}

type fakeEngineProducer struct {
	id   string
	kind domain.MediaKind
}

func (p *fakeEngineProducer) ID() string             { return p.id }
func (p *fakeEngineProducer) Kind() domain.MediaKind { return p.kind }
func (p *fakeEngineProducer) Close() error           { return nil }

type fakeEngineConsumer struct {
	id         string
	producerID string
	paused     bool
}

func (c *fakeEngineConsumer) ID() string             { return c.id }
func (c *fakeEngineConsumer) ProducerID() string     { return c.producerID }
func (c *fakeEngineConsumer) Kind() domain.MediaKind { return domain.MediaKindVideo }
func (c *fakeEngineConsumer) RTPParameters() domain.RTPParameters {
	return domain.RTPParameters{MimeType: "video/VP8", ClockRate: 90000, SSRC: 42}
}
func (c *fakeEngineConsumer) Paused() bool  { return c.paused }
func (c *fakeEngineConsumer) Resume() error { c.paused = false; return nil }
func (c *fakeEngineConsumer) Close() error  { return nil }

type fakeEngineTransport struct {
	id        string
	connected bool
	closed    bool
	seq       int
}

func (t *fakeEngineTransport) ID() string                 { return t.id }
func (t *fakeEngineTransport) Info() domain.TransportInfo { return domain.TransportInfo{ID: t.id} }
func (t *fakeEngineTransport) Connect(_ context.Context, _ domain.ConnectParameters) error {
	t.connected = true
	return nil
}
func (t *fakeEngineTransport) Produce(_ context.Context, kind domain.MediaKind, _ domain.RTPParameters) (domain.Producer, error) {
	t.seq++
	return &fakeEngineProducer{id: fmt.Sprintf("%s-prod-%d", t.id, t.seq), kind: kind}, nil
}
func (t *fakeEngineTransport) Consume(_ context.Context, producerID string, _ domain.RTPCapabilities, paused bool) (domain.Consumer, error) {
	t.seq++
	return &fakeEngineConsumer{id: fmt.Sprintf("%s-cons-%d", t.id, t.seq), producerID: producerID, paused: paused}, nil
}
func (t *fakeEngineTransport) OnDTLSStateChange(func(state webrtc.DTLSTransportState)) {}
func (t *fakeEngineTransport) Close() error                                            { t.closed = true; return nil }

type fakeEngine struct {
	nextID     int
	transports []*fakeEngineTransport
}

func (r *fakeEngine) CreateTransport(_ context.Context) (domain.RouterTransport, error) {
	r.nextID++
	t := &fakeEngineTransport{id: fmt.Sprintf("t-%d", r.nextID)}
	r.transports = append(r.transports, t)
	return t, nil
}
func (r *fakeEngine) CanConsume(_ string, caps domain.RTPCapabilities) bool {
	return len(caps.Codecs) > 0
}
func (r *fakeEngine) Close() {}

type gatewayFixture struct {
	gateway *Gateway
	dir     *fakeDirectory
	engine  *fakeEngine
}

func newGatewayFixture() *gatewayFixture {
	dir := &fakeDirectory{sockets: make(map[sockets.SocketID]*fakeSocket)}
	rooms := memory.NewRoomRepository()
	engine := &fakeEngine{}

	sessions := service.NewSessionService(rooms, engine, newRoomBroadcaster(rooms, dir),
		func(socketID string) bool {
			_, ok := dir.sockets[sockets.SocketID(socketID)]
			return ok
		})

	gateway := NewGateway(sessions, nil, func() api.PeerConnectionConfig {
		return api.DefaultPeerConnectionConfig()
	})

	return &gatewayFixture{gateway: gateway, dir: dir, engine: engine}
}

func vp8Caps() api.RTPCapabilities {
	return api.RTPCapabilities{Codecs: []api.RTPCodecCapability{
		{MimeType: "video/VP8", ClockRate: 90000},
	}}
}

func (f *gatewayFixture) join(t *testing.T, socketID, roomID string) {
	t.Helper()
	answer := f.gateway.handleMessage(sockets.SocketID(socketID), api.ClientMessage{
		Event:    api.ClientEventJoinRoom,
		JoinRoom: &api.JoinRoomRequest{RoomID: roomID, UserID: socketID},
	})
	require.NotNil(t, answer)
	require.True(t, *answer.Success)
}

func (f *gatewayFixture) createTransport(t *testing.T, socketID, roomID string, isProducer bool) string {
	t.Helper()
	answer := f.gateway.handleMessage(sockets.SocketID(socketID), api.ClientMessage{
		Event:           api.ClientEventCreateTransport,
		CreateTransport: &api.CreateTransportRequest{RoomID: roomID, IsProducer: isProducer},
	})
	require.True(t, *answer.Success)
	require.NotNil(t, answer.Transport)
	return answer.Transport.ID
}

func TestGateway_FullRoundTrip(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	broadcaster := f.dir.add("sock-a")
	viewer := f.dir.add("sock-b")

	f.join(t, "sock-a", "room-1")
	f.join(t, "sock-b", "room-1")

	// broadcaster side
	prodTransportID := f.createTransport(t, "sock-a", "room-1", true)

	answer := f.gateway.handleMessage("sock-a", api.ClientMessage{
		Event: api.ClientEventConnectTransport,
		ConnectTransport: &api.ConnectTransportRequest{
			RoomID:      "room-1",
			TransportID: prodTransportID,
		},
	})
	req.True(*answer.Success)
	req.True(f.engine.transports[0].connected)

	answer = f.gateway.handleMessage("sock-a", api.ClientMessage{
		Event: api.ClientEventProduce,
		Produce: &api.ProduceRequest{
			RoomID:        "room-1",
			TransportID:   prodTransportID,
			Kind:          "video",
			RTPParameters: api.RTPParameters{MimeType: "video/VP8", ClockRate: 90000, PayloadType: 96, SSRC: 7},
		},
	})
	req.True(*answer.Success)
	req.NotNil(answer.Produced)
	producerID := answer.Produced.ID

	// exactly one newProducer, and only at the viewer
	req.Empty(broadcaster.messagesFor(api.ServerEventNewProducer))
	notifications := viewer.messagesFor(api.ServerEventNewProducer)
	req.Len(notifications, 1)
	req.Equal(producerID, notifications[0].NewProducer.ProducerID)
	req.Equal("video", notifications[0].NewProducer.Kind)

	// viewer side
	consTransportID := f.createTransport(t, "sock-b", "room-1", false)

	answer = f.gateway.handleMessage("sock-b", api.ClientMessage{
		Event: api.ClientEventConnectTransport,
		ConnectTransport: &api.ConnectTransportRequest{
			RoomID:      "room-1",
			TransportID: consTransportID,
		},
	})
	req.True(*answer.Success)

	answer = f.gateway.handleMessage("sock-b", api.ClientMessage{
		Event: api.ClientEventConsume,
		Consume: &api.ConsumeRequest{
			RoomID:          "room-1",
			TransportID:     consTransportID,
			ProducerID:      producerID,
			RTPCapabilities: vp8Caps(),
		},
	})
	req.True(*answer.Success)
	req.NotNil(answer.Consumed)
	req.Equal(producerID, answer.Consumed.ProducerID)
	consumerID := answer.Consumed.ID

	answer = f.gateway.handleMessage("sock-b", api.ClientMessage{
		Event:  api.ClientEventResume,
		Resume: &api.ResumeRequest{RoomID: "room-1", ConsumerID: consumerID},
	})
	req.True(*answer.Success)
}

func TestGateway_ConnectUnknownTransport(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-a")
	f.join(t, "sock-a", "room-1")
	f.createTransport(t, "sock-a", "room-1", true)

	answer := f.gateway.handleMessage("sock-a", api.ClientMessage{
		Event: api.ClientEventConnectTransport,
		ConnectTransport: &api.ConnectTransportRequest{
			RoomID:      "room-1",
			TransportID: "bogus",
		},
	})
	req.False(*answer.Success)
	req.Contains(*answer.Error, "transport not found")
	req.False(f.engine.transports[0].connected)
}

func TestGateway_ProduceOnWrongTransport(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-a")
	viewer := f.dir.add("sock-b")
	f.join(t, "sock-a", "room-1")
	f.join(t, "sock-b", "room-1")
	f.createTransport(t, "sock-a", "room-1", true)

	answer := f.gateway.handleMessage("sock-a", api.ClientMessage{
		Event: api.ClientEventProduce,
		Produce: &api.ProduceRequest{
			RoomID:      "room-1",
			TransportID: "not-the-producer-transport",
			Kind:        "video",
		},
	})
	req.False(*answer.Success)
	req.Contains(*answer.Error, "invalid producer transport")
	req.Empty(viewer.messagesFor(api.ServerEventNewProducer))
}

func TestGateway_ConsumeIncompatibleCapabilities(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-b")
	f.join(t, "sock-b", "room-1")
	consTransportID := f.createTransport(t, "sock-b", "room-1", false)

	answer := f.gateway.handleMessage("sock-b", api.ClientMessage{
		Event: api.ClientEventConsume,
		Consume: &api.ConsumeRequest{
			RoomID:      "room-1",
			TransportID: consTransportID,
			ProducerID:  "prod-1",
			// no codecs advertised, the engine rejects this
		},
	})
	req.False(*answer.Success)
	req.Contains(*answer.Error, "cannot consume")
}

func TestGateway_ResumeUnknownConsumerIsNoop(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-b")
	f.join(t, "sock-b", "room-1")

	answer := f.gateway.handleMessage("sock-b", api.ClientMessage{
		Event:  api.ClientEventResume,
		Resume: &api.ResumeRequest{RoomID: "room-1", ConsumerID: "ghost"},
	})
	req.True(*answer.Success)
}

func TestGateway_DisconnectBroadcastsProducerClosed(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-a")
	viewer := f.dir.add("sock-b")
	f.join(t, "sock-a", "room-1")
	f.join(t, "sock-b", "room-1")

	prodTransportID := f.createTransport(t, "sock-a", "room-1", true)
	answer := f.gateway.handleMessage("sock-a", api.ClientMessage{
		Event: api.ClientEventProduce,
		Produce: &api.ProduceRequest{
			RoomID:        "room-1",
			TransportID:   prodTransportID,
			Kind:          "video",
			RTPParameters: api.RTPParameters{MimeType: "video/VP8", ClockRate: 90000},
		},
	})
	req.True(*answer.Success)

	// broadcaster's socket goes away
	delete(f.dir.sockets, "sock-a")
	f.gateway.sessions.DisconnectSocket("sock-a")

	req.Len(viewer.messagesFor(api.ServerEventProducerClosed), 1)
	req.True(f.engine.transports[0].closed)
}

func TestGateway_MissingPayload(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-a")

	answer := f.gateway.handleMessage("sock-a", api.ClientMessage{Event: api.ClientEventJoinRoom})
	req.False(*answer.Success)
	req.Contains(*answer.Error, "missing event payload")
}

func TestGateway_UnknownEvent(t *testing.T) {
	req := require.New(t)
	f := newGatewayFixture()
	f.dir.add("sock-a")

	answer := f.gateway.handleMessage("sock-a", api.ClientMessage{Event: "teleport"})
	req.False(*answer.Success)
}
