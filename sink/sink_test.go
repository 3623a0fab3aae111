package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/mocks"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sanitizedMessage(content string) event.NewMessage {
	return event.NewMessage{
		ID:      uuid.New(),
		RoomID:  "room-1",
		Author:  "alice",
		Kind:    domain.MessageKindText,
		Content: content,
		At:      time.Now().UTC(),
	}
}

func TestSocketSink_DropsWhenBufferIsFull(t *testing.T) {
	req := require.New(t)
	s := NewSocketSink(1)
	ctx := context.Background()

	req.NoError(s.Consume(ctx, sanitizedMessage("first")))
	// Buffer full: the second event is dropped, the pipeline never stalls
	req.NoError(s.Consume(ctx, sanitizedMessage("second")))

	first := (<-s.Outbound).(event.NewMessage)
	req.Equal("first", first.Content)
	req.Empty(s.Outbound)
}

func TestSearchSink_IndexesTextMessagesOnly(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	index := mocks.NewMockISearch(ctrl)
	s := NewSearchSink(index, logs.GetLoggerFromLevel(slog.LevelDebug))
	ctx := context.Background()

	evt := sanitizedMessage("findable")
	evt.Language = "en"
	index.EXPECT().Index(gomock.Any(), "en").
		DoAndReturn(func(msg domain.Message, _ string) error {
			req.Equal(evt.ID, msg.ID)
			req.Equal("findable", msg.Content)
			return nil
		})
	req.NoError(s.Consume(ctx, evt))

	// Media messages and non-message events never reach the index
	media := sanitizedMessage("")
	media.Kind = domain.MessageKindMedia
	req.NoError(s.Consume(ctx, media))
	req.NoError(s.Consume(ctx, event.TypingIndicator{RoomID: "room-1", Identity: "alice"}))
}

func TestTimeline_RecordsDeliveryOrder(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("alice")
	ctx := context.Background()

	req.NoError(timeline.Consume(ctx, sanitizedMessage("one")))
	req.NoError(timeline.Consume(ctx, sanitizedMessage("two")))
	req.NoError(timeline.Consume(ctx, event.TypingIndicator{RoomID: "room-1"}))

	snapshot := timeline.Snapshot()
	req.Len(snapshot, 2)
	req.Equal("one", snapshot[0].Content)
	req.Equal("two", snapshot[1].Content)

	// The snapshot is a copy
	snapshot[0].Content = "mutated"
	req.Equal("one", timeline.Snapshot()[0].Content)
}
