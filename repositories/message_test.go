package repositories

import (
	"log/slog"
	"testing"
	"time"

	"chat-broker/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func textMessage(room domain.RoomID, author domain.IdentityID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		Room:      room,
		SenderID:  author,
		Kind:      domain.MessageKindText,
		Content:   content,
		CreatedAt: at,
	}
}

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	room := domain.RoomID("room-1")
	at := time.Now().UTC()
	contents := []string{"first", "second", "third"}
	for i, content := range contents {
		seq, err := repository.StoreMessage(textMessage(room, "alice", content, at.Add(time.Duration(i)*time.Minute)))
		req.NoError(err)
		req.Positive(seq)
	}

	fetched, _, err := repository.GetMessages(room, nil)
	req.NoError(err)
	req.Len(fetched, len(contents))

	// Newest first
	req.Equal("third", fetched[0].Content)
	req.Equal("first", fetched[2].Content)
	req.Greater(fetched[0].Seq, fetched[2].Seq)
}

func Test_Record_Messages_Are_Room_Scoped(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	_, err := repository.StoreMessage(textMessage("room-1", "alice", "here", at))
	req.NoError(err)
	_, err = repository.StoreMessage(textMessage("room-2", "bob", "elsewhere", at))
	req.NoError(err)

	fetched, _, err := repository.GetMessages("room-1", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("here", fetched[0].Content)
}

func Test_Record_Multiple_Messages_And_Paginate(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	room := domain.RoomID("room-1")
	at := time.Now().UTC()
	for i, content := range []string{"one", "two", "three", "four", "five"} {
		_, err := repository.StoreMessage(textMessage(room, "alice", content, at.Add(time.Duration(i)*time.Second)))
		req.NoError(err)
	}

	// First page is the two newest messages
	page, cursor, err := repository.GetMessages(room, nil)
	req.NoError(err)
	req.Len(page, limit)
	req.Equal("five", page[0].Content)
	req.Equal("four", page[1].Content)
	req.NotNil(cursor)

	// The cursor resumes right after the last returned message
	page, cursor, err = repository.GetMessages(room, cursor)
	req.NoError(err)
	req.Len(page, limit)
	req.Equal("three", page[0].Content)
	req.Equal("two", page[1].Content)

	page, _, err = repository.GetMessages(room, cursor)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("one", page[0].Content)
}

func Test_Sequence_Survives_Repository_Restart(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	room := domain.RoomID("room-1")
	at := time.Now().UTC()

	first := NewMessageRepository(db, slog.Default(), nil)
	seq1, err := first.StoreMessage(textMessage(room, "alice", "before", at))
	req.NoError(err)
	req.NoError(first.Close())

	// A fresh repository over the same database keeps sequences moving forward
	second := NewMessageRepository(db, slog.Default(), nil)
	seq2, err := second.StoreMessage(textMessage(room, "alice", "after", at))
	req.NoError(err)
	req.Greater(seq2, seq1)
}
