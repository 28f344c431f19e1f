package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// StreamService manages the persistent stream records that bracket live
// sessions. Ending a stream also tears down its signaling room.
type StreamService struct {
	streams  domain.StreamRepository
	sessions *SessionService
}

func NewStreamService(streams domain.StreamRepository, sessions *SessionService) *StreamService {
	return &StreamService{streams: streams, sessions: sessions}
}

func (s *StreamService) Create(teamID string, title string, streamerID string) (domain.Stream, error) {
	stream := domain.Stream{
		ID:         ulid.Make().String(),
		TeamID:     teamID,
		Title:      title,
		StreamerID: streamerID,
		RoomID:     uuid.NewString(),
		Status:     domain.StreamStatusActive,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.streams.Save(stream); err != nil {
		return domain.Stream{}, fmt.Errorf("failed to save stream: %w", err)
	}

	metrics.StreamsStartedTotal.Inc()
	slog.Info("stream created", "streamId", stream.ID, "teamId", teamID, "roomId", stream.RoomID)
	return stream, nil
}

func (s *StreamService) Get(id string) (domain.Stream, error) {
	return s.streams.GetByID(id)
}

func (s *StreamService) ActiveByTeam(teamID string) ([]domain.Stream, error) {
	return s.streams.GetActiveByTeam(teamID)
}

// EndByRoom ends whatever stream record owns the room, if any. Rooms
// without a stream record (admin-created or test rooms) end silently.
func (s *StreamService) EndByRoom(roomID string) error {
	stream, err := s.streams.GetByRoomID(roomID)
	if errors.Is(err, domain.ErrStreamNotFound) {
		s.sessions.EndRoom(roomID)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.End(stream.ID)
	return err
}

// End marks the stream ended and force-closes its room. Ending an
// already-ended stream is idempotent.
func (s *StreamService) End(id string) (domain.Stream, error) {
	stream, err := s.streams.GetByID(id)
	if err != nil {
		return domain.Stream{}, err
	}

	if stream.Status == domain.StreamStatusEnded {
		return stream, nil
	}

	stream.Status = domain.StreamStatusEnded
	if err := s.streams.Save(stream); err != nil {
		return domain.Stream{}, fmt.Errorf("failed to save stream: %w", err)
	}

	s.sessions.EndRoom(stream.RoomID)
	metrics.StreamsEndedTotal.Inc()
	slog.Info("stream ended", "streamId", stream.ID, "roomId", stream.RoomID)
	return stream, nil
}
