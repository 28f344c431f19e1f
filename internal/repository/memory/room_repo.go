package memory

import (
	"sync"
	"time"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/samber/lo"
)

type roomRecord struct {
	id           string
	producer     *domain.Transport
	consumers    map[string]*domain.Transport
	members      map[string]struct{}
	lastActivity time.Time
}

func (r *roomRecord) snapshot() domain.RoomInfo {
	info := domain.RoomInfo{
		ID:            r.id,
		ConsumerCount: len(r.consumers),
		MemberCount:   len(r.members),
		LastActivity:  r.lastActivity,
	}
	if r.producer != nil {
		info.ProducerTransportID = r.producer.ID
	}
	return info
}

// RoomRepository keeps all room state behind a single mutex. Room churn
// is driven by signaling messages, so contention is low and one lock is
// simpler to reason about than per-room locking.
type RoomRepository struct {
	mutex sync.Mutex
	rooms map[string]*roomRecord
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms: make(map[string]*roomRecord),
	}
}

func (r *RoomRepository) getOrCreateLocked(roomID string) *roomRecord {
	room, ok := r.rooms[roomID]
	if !ok {
		room = &roomRecord{
			id:           roomID,
			consumers:    make(map[string]*domain.Transport),
			members:      make(map[string]struct{}),
			lastActivity: time.Now(),
		}
		r.rooms[roomID] = room
		metrics.RoomsCreatedTotal.Inc()
		metrics.ActiveRooms.Set(float64(len(r.rooms)))
	}
	return room
}

func (r *RoomRepository) GetOrCreate(roomID string) domain.RoomInfo {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room := r.getOrCreateLocked(roomID)
	room.lastActivity = time.Now()
	return room.snapshot()
}

func (r *RoomRepository) Get(roomID string) (domain.RoomInfo, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.RoomInfo{}, domain.ErrRoomNotFound
	}
	return room.snapshot(), nil
}

func (r *RoomRepository) SetProducerTransport(roomID string, t *domain.Transport) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.producer = t
	room.lastActivity = time.Now()
	return nil
}

func (r *RoomRepository) ProducerTransport(roomID string) (*domain.Transport, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok || room.producer == nil {
		return nil, false
	}
	return room.producer, true
}

func (r *RoomRepository) AddConsumer(roomID string, t *domain.Transport) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.consumers[t.ID] = t
	room.lastActivity = time.Now()
	return nil
}

func (r *RoomRepository) ConsumerTransports(roomID string) []*domain.Transport {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return lo.Values(room.consumers)
}

func (r *RoomRepository) TransportByID(roomID string, transportID string) (*domain.Transport, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.producer != nil && room.producer.ID == transportID {
		return room.producer, nil
	}
	if t, ok := room.consumers[transportID]; ok {
		return t, nil
	}
	return nil, domain.ErrTransportNotFound
}

func (r *RoomRepository) RemoveTransport(roomID string, transportID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if room.producer != nil && room.producer.ID == transportID {
		room.producer = nil
		room.lastActivity = time.Now()
		return true
	}
	if _, ok := room.consumers[transportID]; ok {
		delete(room.consumers, transportID)
		room.lastActivity = time.Now()
		return true
	}
	return false
}

func (r *RoomRepository) Join(roomID string, socketID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room := r.getOrCreateLocked(roomID)
	room.members[socketID] = struct{}{}
	room.lastActivity = time.Now()
}

func (r *RoomRepository) LeaveAll(socketID string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var left []string
	for id, room := range r.rooms {
		if _, ok := room.members[socketID]; ok {
			delete(room.members, socketID)
			room.lastActivity = time.Now()
			left = append(left, id)
		}
	}
	return left
}

func (r *RoomRepository) Members(roomID string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return lo.Keys(room.members)
}

func (r *RoomRepository) TransportsOwnedBy(socketID string) []*domain.Transport {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var owned []*domain.Transport
	for _, room := range r.rooms {
		if room.producer != nil && room.producer.OwnerSocketID == socketID {
			owned = append(owned, room.producer)
		}
		for _, t := range room.consumers {
			if t.OwnerSocketID == socketID {
				owned = append(owned, t)
			}
		}
	}
	return owned
}

func (r *RoomRepository) EvictIdle(grace time.Duration) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	deadline := time.Now().Add(-grace)
	var evicted []string
	for id, room := range r.rooms {
		if room.producer == nil && len(room.consumers) == 0 && len(room.members) == 0 &&
			room.lastActivity.Before(deadline) {
			delete(r.rooms, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		metrics.RoomsEvictedTotal.Add(float64(len(evicted)))
		metrics.ActiveRooms.Set(float64(len(r.rooms)))
	}
	return evicted
}

func (r *RoomRepository) Evict(roomID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return
	}
	delete(r.rooms, roomID)
	metrics.RoomsEvictedTotal.Inc()
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

func (r *RoomRepository) Rooms() []domain.RoomInfo {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	infos := make([]domain.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		infos = append(infos, room.snapshot())
	}
	return infos
}
