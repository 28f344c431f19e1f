package domain

import "time"

type StreamStatus string

const (
	StreamStatusActive = StreamStatus("active")
	StreamStatusEnded  = StreamStatus("ended")
)

// Stream is the persistent bookkeeping record that brackets a live
// session: created when a broadcaster starts, marked ended when the
// stream is stopped. The RoomID links it to the in-memory room.
type Stream struct {
	ID         string
	TeamID     string
	Title      string
	StreamerID string
	RoomID     string
	Status     StreamStatus
	CreatedAt  time.Time
}

type StreamRepository interface {
	Save(stream Stream) error
	GetByID(id string) (Stream, error)
	GetByRoomID(roomID string) (Stream, error)
	GetActiveByTeam(teamID string) ([]Stream, error)
}
