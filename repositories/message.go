package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-broker/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	sequences     *roomSequences
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{
		db:            db,
		log:           log,
		limitMessages: limitMessages,
		sequences:     newRoomSequences(db),
	}
}

// Close releases the badger sequences. Call it before closing the database.
func (m *MessageRepository) Close() error {
	return m.sequences.release()
}

// diskMessage is the stored representation. The room and sequence live in
// the key; duplicating them in the value keeps reads single-pass.
type diskMessage struct {
	ID       string `json:"id"`
	Room     string `json:"room"`
	Author   string `json:"author"`
	Kind     string `json:"kind"`
	Content  string `json:"content"`
	MediaRef string `json:"media_ref,omitempty"`
	Seq      uint64 `json:"seq"`
	At       int64  `json:"at"`
}

// StoreMessage persists a message in BadgerDB and returns its room-scoped
// sequence number. The key is formatted as "msg:{room}:{seq_padded}:{uuid}" to:
//  1. Ensure per-room ordering using 19-digit zero padding (lexicographical order).
//  2. Keep the UUID as a collision disconnector should a sequence ever repeat
//     after a crash recovery.
func (m *MessageRepository) StoreMessage(message domain.Message) (uint64, error) {
	seq, err := m.sequences.next(message.Room)
	if err != nil {
		return 0, err
	}
	key := fmt.Sprintf("msg:%s:%019d:%s", message.Room, seq, message.ID)
	bytes, err := json.Marshal(diskMessage{
		ID:       message.ID.String(),
		Room:     string(message.Room),
		Author:   string(message.SenderID),
		Kind:     string(message.Kind),
		Content:  message.Content,
		MediaRef: message.MediaRef,
		Seq:      seq,
		At:       message.CreatedAt.UnixNano(),
	})
	if err != nil {
		return 0, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// GetMessages retrieves messages for a specific room using a reverse prefix
// scan, newest first. Thanks to the padded sequence in the key, messages are
// naturally sorted. It stops once the configured limitMessages is reached;
// the returned cursor resumes the scan where it left off.
func (m *MessageRepository) GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var byteMessages [][]byte
	var messages []domain.Message
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize the cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, b := range byteMessages {
		var stored diskMessage
		if err = json.Unmarshal(b, &stored); err != nil {
			return nil, nil, err
		}
		message, err := toDomainMessage(stored)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, err
}

func toDomainMessage(stored diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		Room:      domain.RoomID(stored.Room),
		SenderID:  domain.IdentityID(stored.Author),
		Kind:      domain.MessageKind(stored.Kind),
		Content:   stored.Content,
		MediaRef:  stored.MediaRef,
		Seq:       stored.Seq,
		CreatedAt: time.Unix(0, stored.At).UTC(),
	}, nil
}
