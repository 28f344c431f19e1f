package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/repository/memory"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	id     string
	kind   domain.MediaKind
	closed bool
}

func (p *fakeProducer) ID() string            { return p.id }
func (p *fakeProducer) Kind() domain.MediaKind { return p.kind }
func (p *fakeProducer) Close() error          { p.closed = true; return nil }

type fakeConsumer struct {
	id         string
	producerID string
	kind       domain.MediaKind
	rtp        domain.RTPParameters
	paused     bool
	closed     bool
}

func (c *fakeConsumer) ID() string                          { return c.id }
func (c *fakeConsumer) ProducerID() string                  { return c.producerID }
func (c *fakeConsumer) Kind() domain.MediaKind              { return c.kind }
func (c *fakeConsumer) RTPParameters() domain.RTPParameters { return c.rtp }
func (c *fakeConsumer) Paused() bool                        { return c.paused }
func (c *fakeConsumer) Resume() error                       { c.paused = false; return nil }
func (c *fakeConsumer) Close() error                        { c.closed = true; return nil }

type fakeTransport struct {
	id        string
	connected bool
	closed    bool

	connectErr error
	produceErr error

	observers []func(webrtc.DTLSTransportState)
	seq       int
}

func (t *fakeTransport) ID() string { return t.id }
func (t *fakeTransport) Info() domain.TransportInfo {
	return domain.TransportInfo{ID: t.id}
}
func (t *fakeTransport) Connect(_ context.Context, _ domain.ConnectParameters) error {
	if t.connectErr != nil {
		return t.connectErr
	}
	t.connected = true
	return nil
}
func (t *fakeTransport) Produce(_ context.Context, kind domain.MediaKind, _ domain.RTPParameters) (domain.Producer, error) {
	if t.produceErr != nil {
		return nil, t.produceErr
	}
	t.seq++
	return &fakeProducer{id: fmt.Sprintf("%s-prod-%d", t.id, t.seq), kind: kind}, nil
}
func (t *fakeTransport) Consume(_ context.Context, producerID string, _ domain.RTPCapabilities, paused bool) (domain.Consumer, error) {
	t.seq++
	return &fakeConsumer{
		id:         fmt.Sprintf("%s-cons-%d", t.id, t.seq),
		producerID: producerID,
		kind:       domain.MediaKindVideo,
		paused:     paused,
	}, nil
}
func (t *fakeTransport) OnDTLSStateChange(f func(state webrtc.DTLSTransportState)) {
	t.observers = append(t.observers, f)
}
func (t *fakeTransport) Close() error { t.closed = true; return nil }

func (t *fakeTransport) fireDTLS(state webrtc.DTLSTransportState) {
	for _, f := range t.observers {
		f(state)
	}
}

type fakeRouter struct {
	nextID     int
	transports []*fakeTransport
	createErr  error
	canConsume bool
}

func (r *fakeRouter) CreateTransport(_ context.Context) (domain.RouterTransport, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	t := &fakeTransport{id: fmt.Sprintf("t-%d", r.nextID)}
	r.transports = append(r.transports, t)
	return t, nil
}
func (r *fakeRouter) CanConsume(_ string, _ domain.RTPCapabilities) bool { return r.canConsume }
func (r *fakeRouter) Close()                                             {}

type newProducerCall struct {
	roomID     string
	producerID string
	except     string
}

type fakeNotifier struct {
	mu              sync.Mutex
	newProducers    []newProducerCall
	producersClosed []string
}

func (n *fakeNotifier) NewProducer(roomID string, producerID string, _ domain.MediaKind, exceptSocketID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newProducers = append(n.newProducers, newProducerCall{roomID: roomID, producerID: producerID, except: exceptSocketID})
}
func (n *fakeNotifier) ProducerClosed(roomID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.producersClosed = append(n.producersClosed, roomID)
}

type fixture struct {
	rooms    *memory.RoomRepository
	router   *fakeRouter
	notifier *fakeNotifier
	svc      *SessionService
	dead     map[string]bool
}

func newFixture() *fixture {
	f := &fixture{
		rooms:    memory.NewRoomRepository(),
		router:   &fakeRouter{canConsume: true},
		notifier: &fakeNotifier{},
		dead:     make(map[string]bool),
	}
	f.svc = NewSessionService(f.rooms, f.router, f.notifier, func(socketID string) bool {
		return !f.dead[socketID]
	})
	return f
}

func TestCreateTransport_UnknownRoom(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateTransport(context.Background(), "no-such-room", "sock-a", true)
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestCreateTransport_ProducerSlotOverwrite(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	first, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)
	second, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)
	req.NotEqual(first.ID, second.ID)

	slot, ok := f.rooms.ProducerTransport("room-1")
	req.True(ok)
	req.Equal(second.ID, slot.ID)
}

func TestCreateTransport_SocketGoneClosesOrphan(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")
	f.dead["sock-a"] = true

	_, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.ErrorIs(err, domain.ErrSocketGone)

	req.Len(f.router.transports, 1)
	req.True(f.router.transports[0].closed)

	_, ok := f.rooms.ProducerTransport("room-1")
	req.False(ok)
}

func TestConnectTransport_UnknownIDNoMutation(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)

	err = f.svc.ConnectTransport(context.Background(), "room-1", "bogus-id", domain.ConnectParameters{})
	req.ErrorIs(err, domain.ErrTransportNotFound)

	// the registered transport is untouched
	req.False(f.router.transports[0].connected)

	req.NoError(f.svc.ConnectTransport(context.Background(), "room-1", info.ID, domain.ConnectParameters{}))
	req.True(f.router.transports[0].connected)
}

func TestProduce_WrongTransportNoBroadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	_, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)

	_, err = f.svc.Produce(context.Background(), "room-1", "not-the-producer", "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{})
	req.ErrorIs(err, domain.ErrInvalidProducerTransport)
	req.Empty(f.notifier.newProducers)
}

func TestProduce_NotifiesOthers(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)

	producerID, err := f.svc.Produce(context.Background(), "room-1", info.ID, "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{MimeType: "video/VP8", ClockRate: 90000})
	req.NoError(err)
	req.NotEmpty(producerID)

	req.Len(f.notifier.newProducers, 1)
	call := f.notifier.newProducers[0]
	req.Equal("room-1", call.roomID)
	req.Equal(producerID, call.producerID)
	req.Equal("sock-a", call.except)
}

func TestProduce_ReplacementClosesOldProducer(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)

	firstID, err := f.svc.Produce(context.Background(), "room-1", info.ID, "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{})
	req.NoError(err)

	secondID, err := f.svc.Produce(context.Background(), "room-1", info.ID, "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{})
	req.NoError(err)
	req.NotEqual(firstID, secondID)

	slot, _ := f.rooms.ProducerTransport("room-1")
	req.Equal(secondID, slot.Producer().ID())
	req.Len(f.notifier.newProducers, 2)
}

func TestConsume_IncompatibleCapabilities(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.router.canConsume = false
	f.svc.JoinRoom("room-1", "sock-b")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-b", false)
	req.NoError(err)

	_, err = f.svc.Consume(context.Background(), "room-1", info.ID, "prod-1", domain.RTPCapabilities{})
	req.ErrorIs(err, domain.ErrIncompatibleCapabilities)
}

func TestConsume_ProducerTransportRejected(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)

	_, err = f.svc.Consume(context.Background(), "room-1", info.ID, "prod-1", domain.RTPCapabilities{})
	req.ErrorIs(err, domain.ErrConsumerTransportNotFound)
}

func TestConsume_StartsPaused(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-b")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-b", false)
	req.NoError(err)

	consumer, err := f.svc.Consume(context.Background(), "room-1", info.ID, "prod-1", domain.RTPCapabilities{})
	req.NoError(err)
	req.True(consumer.Paused())
}

func TestResume(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-b")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-b", false)
	req.NoError(err)
	consumer, err := f.svc.Consume(context.Background(), "room-1", info.ID, "prod-1", domain.RTPCapabilities{})
	req.NoError(err)

	req.NoError(f.svc.Resume("room-1", consumer.ID()))
	req.False(consumer.Paused())

	// unknown consumer is a successful no-op
	req.NoError(f.svc.Resume("room-1", "ghost-consumer"))

	req.ErrorIs(f.svc.Resume("no-room", consumer.ID()), domain.ErrRoomNotFound)
}

func TestDisconnectSocket_SweepsAndBroadcasts(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")
	f.svc.JoinRoom("room-1", "sock-b")

	prodInfo, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)
	_, err = f.svc.Produce(context.Background(), "room-1", prodInfo.ID, "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{})
	req.NoError(err)

	consInfo, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-b", false)
	req.NoError(err)

	f.svc.DisconnectSocket("sock-a")

	req.Equal([]string{"room-1"}, f.notifier.producersClosed)
	_, ok := f.rooms.ProducerTransport("room-1")
	req.False(ok)
	req.True(f.router.transports[0].closed)

	// the consumer side is untouched
	_, err = f.rooms.TransportByID("room-1", consInfo.ID)
	req.NoError(err)
	req.False(f.router.transports[1].closed)
}

func TestDisconnectSocket_NoProducerNoBroadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-b")

	_, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-b", false)
	req.NoError(err)

	f.svc.DisconnectSocket("sock-b")
	req.Empty(f.notifier.producersClosed)
}

func TestDTLSClosedReapsTransport(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")

	info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)
	_, err = f.svc.Produce(context.Background(), "room-1", info.ID, "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{})
	req.NoError(err)

	f.router.transports[0].fireDTLS(webrtc.DTLSTransportStateClosed)

	req.True(f.router.transports[0].closed)
	_, ok := f.rooms.ProducerTransport("room-1")
	req.False(ok)
	req.Equal([]string{"room-1"}, f.notifier.producersClosed)

	// a later disconnect sweep finds nothing left to do
	f.svc.DisconnectSocket("sock-a")
	req.Len(f.notifier.producersClosed, 1)
}

func TestReapTransport_ConcurrentCallbackAndSweep(t *testing.T) {
	req := require.New(t)

	for i := 0; i < 500; i++ {
		f := newFixture()
		f.svc.JoinRoom("room-1", "sock-a")

		info, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
		req.NoError(err)
		_, err = f.svc.Produce(context.Background(), "room-1", info.ID, "sock-a",
			domain.MediaKindVideo, domain.RTPParameters{})
		req.NoError(err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.router.transports[0].fireDTLS(webrtc.DTLSTransportStateClosed)
		}()
		go func() {
			defer wg.Done()
			f.svc.DisconnectSocket("sock-a")
		}()
		wg.Wait()

		req.Equal([]string{"room-1"}, f.notifier.producersClosed)
	}
}

func TestEndRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.svc.JoinRoom("room-1", "sock-a")
	f.svc.JoinRoom("room-1", "sock-b")

	prodInfo, err := f.svc.CreateTransport(context.Background(), "room-1", "sock-a", true)
	req.NoError(err)
	_, err = f.svc.Produce(context.Background(), "room-1", prodInfo.ID, "sock-a",
		domain.MediaKindVideo, domain.RTPParameters{})
	req.NoError(err)
	_, err = f.svc.CreateTransport(context.Background(), "room-1", "sock-b", false)
	req.NoError(err)

	f.svc.EndRoom("room-1")

	for _, tr := range f.router.transports {
		req.True(tr.closed)
	}
	_, err = f.rooms.Get("room-1")
	req.ErrorIs(err, domain.ErrRoomNotFound)
}
