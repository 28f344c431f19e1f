package domain

import (
	"sync"
	"time"
)

// Transport is the registry's record of one media leg: the engine
// handle plus the ownership data disconnect cleanup needs. ID, RoomID,
// Role and OwnerSocketID are set once at creation; the producer slot
// and consumer set are guarded by the record's own mutex because engine
// callbacks mutate them outside the registry lock.
type Transport struct {
	ID            string
	RoomID        string
	Role          TransportRole
	OwnerSocketID string
	Handle        RouterTransport

	mu        sync.Mutex
	producer  Producer
	consumers map[string]Consumer
}

func NewTransport(roomID string, role TransportRole, ownerSocketID string, handle RouterTransport) *Transport {
	return &Transport{
		ID:            handle.ID(),
		RoomID:        roomID,
		Role:          role,
		OwnerSocketID: ownerSocketID,
		Handle:        handle,
		consumers:     make(map[string]Consumer),
	}
}

// SetProducer installs the active producer and returns the one it
// replaced, if any. The caller decides what to do with the old one.
func (t *Transport) SetProducer(p Producer) Producer {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.producer
	t.producer = p
	return old
}

func (t *Transport) Producer() Producer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.producer
}

func (t *Transport) AddConsumer(c Consumer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumers[c.ID()] = c
}

func (t *Transport) FindConsumer(consumerID string) (Consumer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.consumers[consumerID]
	return c, ok
}

func (t *Transport) Consumers() []Consumer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Consumer, 0, len(t.consumers))
	for _, c := range t.consumers {
		out = append(out, c)
	}
	return out
}

// RoomInfo is a point-in-time snapshot of one room, safe to hand out
// without holding the registry lock.
type RoomInfo struct {
	ID                  string
	ProducerTransportID string
	ConsumerCount       int
	MemberCount         int
	LastActivity        time.Time
}

// RoomStore is the authoritative in-memory table of room state. It is
// injectable so the gateway never depends on a concrete map; a
// distributed implementation could replace the in-memory one without
// touching gateway logic.
//
// Invariants the store enforces:
//   - at most one producer transport per room (single slot, overwrite
//     allowed, no implicit close of the replaced transport)
//   - consumer membership updates are idempotent
//   - every registered transport is reachable by id in O(1)
type RoomStore interface {
	// GetOrCreate returns the room, creating an empty one on first use.
	// It never fails.
	GetOrCreate(roomID string) RoomInfo
	// Get fails with ErrRoomNotFound for a roomID that was never joined.
	Get(roomID string) (RoomInfo, error)

	SetProducerTransport(roomID string, t *Transport) error
	ProducerTransport(roomID string) (*Transport, bool)

	AddConsumer(roomID string, t *Transport) error
	ConsumerTransports(roomID string) []*Transport

	// TransportByID resolves either role by engine-assigned id.
	TransportByID(roomID string, transportID string) (*Transport, error)
	// RemoveTransport drops the transport from whichever slot holds it
	// and reports whether it was still registered. The removal is a
	// single atomic step, so exactly one of any set of concurrent
	// callers sees true.
	RemoveTransport(roomID string, transportID string) bool

	Join(roomID string, socketID string)
	// LeaveAll removes the socket from every room and returns the rooms
	// it left.
	LeaveAll(socketID string) []string
	Members(roomID string) []string

	// TransportsOwnedBy returns every registered transport owned by the
	// socket, across all rooms. Used by the disconnect sweep.
	TransportsOwnedBy(socketID string) []*Transport

	// EvictIdle removes rooms that have had no producer, consumers or
	// members for at least the grace period, returning their ids.
	EvictIdle(grace time.Duration) []string
	// Evict drops a room unconditionally (force-end).
	Evict(roomID string)

	Rooms() []RoomInfo
}
