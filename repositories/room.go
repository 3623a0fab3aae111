package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat-broker/domain"
	errs "chat-broker/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type diskRoom struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Participants  []string `json:"participants"`
	LastMessageID string   `json:"last_message_id,omitempty"`
	LastMessageAt int64    `json:"last_message_at,omitempty"`
	CreatedAt     int64    `json:"created_at"`
}

func roomKey(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("room:%s", id))
}

func (r *RoomRepository) CreateRoom(room domain.ChatRoom) error {
	data, err := json.Marshal(diskRoom{
		ID:   string(room.ID),
		Kind: string(room.Kind),
		Participants: lo.Map(room.Participants, func(p domain.IdentityID, _ int) string {
			return string(p)
		}),
		CreatedAt: room.CreatedAt.Unix(),
	})
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), data)
	})
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.ChatRoom, bool, error) {
	var stored diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ChatRoom{}, false, nil
	}
	if err != nil {
		return domain.ChatRoom{}, false, err
	}
	return toChatRoom(stored), true, nil
}

// SetLastMessage updates the room's last message reference inside a single
// read-modify-write transaction.
func (r *RoomRepository) SetLastMessage(id domain.RoomID, messageID string, at time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", errs.ErrRoomNotFound, id)
			}
			return err
		}
		var stored diskRoom
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		stored.LastMessageID = messageID
		stored.LastMessageAt = at.UnixNano()
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(id), data)
	})
}

func toChatRoom(stored diskRoom) domain.ChatRoom {
	room := domain.ChatRoom{
		ID:   domain.RoomID(stored.ID),
		Kind: domain.RoomKind(stored.Kind),
		Participants: lo.Map(stored.Participants, func(p string, _ int) domain.IdentityID {
			return domain.IdentityID(p)
		}),
		LastMessageID: stored.LastMessageID,
		CreatedAt:     time.Unix(stored.CreatedAt, 0).UTC(),
	}
	if stored.LastMessageAt != 0 {
		room.LastMessageAt = time.Unix(0, stored.LastMessageAt).UTC()
	}
	return room
}
