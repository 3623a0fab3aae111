package repositories

import (
	"testing"
	"time"

	"chat-broker/domain"
	errs "chat-broker/errors"

	"github.com/stretchr/testify/require"
)

func Test_Create_And_Fetch_Room(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewRoomRepository(db)

	room := domain.ChatRoom{
		ID:           "room-1",
		Kind:         domain.RoomKindPaid,
		Participants: []domain.IdentityID{"alice", "bob"},
		CreatedAt:    time.Now().UTC(),
	}
	req.NoError(repository.CreateRoom(room))

	fetched, found, err := repository.GetRoom("room-1")
	req.NoError(err)
	req.True(found)
	req.Equal(domain.RoomKindPaid, fetched.Kind)
	req.Equal(room.Participants, fetched.Participants)
	req.True(fetched.HasParticipant("alice"))
	req.False(fetched.HasParticipant("mallory"))
}

func Test_Get_Unknown_Room(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewRoomRepository(db)

	_, found, err := repository.GetRoom("ghost")
	req.NoError(err)
	req.False(found)
}

func Test_Set_Last_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewRoomRepository(db)

	room := domain.ChatRoom{ID: "room-1", Kind: domain.RoomKindFree, CreatedAt: time.Now().UTC()}
	req.NoError(repository.CreateRoom(room))

	at := time.Now().UTC()
	req.NoError(repository.SetLastMessage("room-1", "msg-42", at))

	fetched, _, err := repository.GetRoom("room-1")
	req.NoError(err)
	req.Equal("msg-42", fetched.LastMessageID)
	req.True(fetched.LastMessageAt.Equal(at))

	// Unknown rooms are reported, not silently created
	err = repository.SetLastMessage("ghost", "msg-1", at)
	req.ErrorIs(err, errs.ErrRoomNotFound)
}

func Test_Read_Receipts(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewReceiptRepository(db)

	at := time.Now().UTC()
	req.NoError(repository.MarkRead("room-1", "msg-1", "alice", at))
	req.NoError(repository.MarkRead("room-1", "msg-1", "bob", at))
	// Idempotent
	req.NoError(repository.MarkRead("room-1", "msg-1", "alice", at.Add(time.Second)))

	readers, err := repository.ReadBy("room-1", "msg-1")
	req.NoError(err)
	req.ElementsMatch([]domain.IdentityID{"alice", "bob"}, readers)

	readers, err = repository.ReadBy("room-1", "msg-2")
	req.NoError(err)
	req.Empty(readers)
}
