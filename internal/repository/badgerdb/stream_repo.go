package badgerdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/dgraph-io/badger/v4"
)

const (
	streamKeyPrefix = "stream:"
	roomIdxPrefix   = "stream_room:"
	teamIdxPrefix   = "stream_team:"
)

// StreamRepository persists stream records in Badger. Records are small
// JSON blobs; two secondary indexes map roomID and teamID back to the
// record key so lookups never scan the whole keyspace.
type StreamRepository struct {
	db     *badger.DB
	logger *slog.Logger
}

func NewStreamRepository(db *badger.DB, logger *slog.Logger) *StreamRepository {
	return &StreamRepository{db: db, logger: logger}
}

func streamKey(id string) []byte {
	return []byte(streamKeyPrefix + id)
}

func roomIdxKey(roomID string) []byte {
	return []byte(roomIdxPrefix + roomID)
}

func teamIdxKey(teamID, streamID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", teamIdxPrefix, teamID, streamID))
}

func (r *StreamRepository) Save(stream domain.Stream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("marshal stream %s: %w", stream.ID, err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(streamKey(stream.ID), data); err != nil {
			return err
		}
		if err := txn.Set(roomIdxKey(stream.RoomID), []byte(stream.ID)); err != nil {
			return err
		}
		return txn.Set(teamIdxKey(stream.TeamID, stream.ID), []byte(stream.ID))
	})
}

func (r *StreamRepository) GetByID(id string) (domain.Stream, error) {
	var stream domain.Stream
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(streamKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stream)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Stream{}, domain.ErrStreamNotFound
	}
	return stream, err
}

func (r *StreamRepository) GetByRoomID(roomID string) (domain.Stream, error) {
	var streamID string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomIdxKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			streamID = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Stream{}, domain.ErrStreamNotFound
	}
	if err != nil {
		return domain.Stream{}, err
	}
	return r.GetByID(streamID)
}

func (r *StreamRepository) GetActiveByTeam(teamID string) ([]domain.Stream, error) {
	var streams []domain.Stream

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(teamIdxPrefix + teamID + ":")
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var streamID string
			if err := it.Item().Value(func(val []byte) error {
				streamID = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(streamKey(streamID))
			if err != nil {
				// index entry without a record, skip but keep a trace
				r.logger.Warn("dangling team index entry", "streamId", streamID, "teamId", teamID)
				continue
			}

			var stream domain.Stream
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stream)
			}); err != nil {
				return err
			}

			if stream.Status == domain.StreamStatusActive {
				streams = append(streams, stream)
			}
		}
		return nil
	})
	return streams, err
}
