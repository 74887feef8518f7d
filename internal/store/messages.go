package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/DavidGarciaCosta/portal-productos/internal/model/chat"
)

// Messages is an append-only chat message log.
//
// Keys are "msg:{room}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero-padded nanosecond timestamp makes lexicographic
//     order chronological, so recency queries are a reverse prefix scan;
//  2. the uuid suffix disambiguates two messages landing on the same
//     nanosecond.
type Messages struct {
	db  *badger.DB
	log *slog.Logger
}

// NewMessages builds the message repository.
func NewMessages(db *badger.DB, log *slog.Logger) *Messages {
	return &Messages{db: db, log: log}
}

// Append persists a message and returns it with its server-generated id
// and timestamp filled in. Messages are never mutated afterwards.
func (s *Messages) Append(msg chat.Message) (chat.Message, error) {
	if msg.Room == "" {
		msg.Room = chat.DefaultRoom
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	key := fmt.Sprintf("msg:%s:%019d:%s", msg.Room, msg.CreatedAt.UnixNano(), msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return chat.Message{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// Recent returns up to limit messages for the room, most recent last.
func (s *Messages) Recent(room string, limit int) ([]chat.Message, error) {
	if room == "" {
		room = chat.DefaultRoom
	}

	var messages []chat.Message
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", room))
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the newest possible key for this room, then walk back.
		seekKey := append(append([]byte(nil), prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			var msg chat.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The scan yields newest first; callers want oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
