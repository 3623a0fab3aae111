// Package search maintains a full-text index of relayed messages and
// answers room-scoped queries over it.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-broker/domain"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/index"
	"github.com/google/uuid"
)

// Index wraps a bluge writer. Writes are buffered into a batch and flushed
// once batchSize documents accumulate, trading a little freshness for
// throughput on busy rooms.
type Index struct {
	mu        sync.Mutex
	writer    *bluge.Writer
	log       *slog.Logger
	batch     *index.Batch
	pending   int
	batchSize int
}

func NewIndex(writer *bluge.Writer, log *slog.Logger, batchSize int) *Index {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Index{
		writer:    writer,
		log:       log,
		batch:     bluge.NewBatch(),
		batchSize: batchSize,
	}
}

func (i *Index) Index(msg domain.Message, language string) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content)).
		AddField(bluge.NewKeywordField("room", string(msg.Room)).StoreValue()).
		AddField(bluge.NewKeywordField("author", string(msg.SenderID)).StoreValue()).
		AddField(bluge.NewKeywordField("language", language)).
		AddField(bluge.NewStoredOnlyField("stored_content", []byte(msg.Content))).
		AddField(bluge.NewDateTimeField("at", msg.CreatedAt)).
		AddField(bluge.NewStoredOnlyField("stored_at", []byte(msg.CreatedAt.UTC().Format(time.RFC3339Nano))))

	i.mu.Lock()
	defer i.mu.Unlock()
	i.batch.Update(doc.ID(), doc)
	i.pending++
	if i.pending >= i.batchSize {
		return i.flushLocked()
	}
	return nil
}

// Flush commits any buffered documents immediately.
func (i *Index) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.flushLocked()
}

func (i *Index) flushLocked() error {
	if i.pending == 0 {
		return nil
	}
	if err := i.writer.Batch(i.batch); err != nil {
		return err
	}
	i.batch.Reset()
	i.pending = 0
	return nil
}

// Search answers a room-scoped full-text query, best matches first.
func (i *Index) Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]domain.Message, error) {
	if err := i.Flush(); err != nil {
		return nil, err
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	contentQuery := bluge.NewMatchQuery(query).SetField("content")
	roomQuery := bluge.NewTermQuery(string(room)).SetField("room")
	q := bluge.NewBooleanQuery().AddMust(contentQuery, roomQuery)

	if limit <= 0 {
		limit = 20
	}
	request := bluge.NewTopNSearch(limit, q)
	dmi, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var results []domain.Message
	for {
		match, err := dmi.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var msg domain.Message
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, err := uuid.Parse(string(value)); err == nil {
					msg.ID = id
				}
			case "room":
				msg.Room = domain.RoomID(value)
			case "author":
				msg.SenderID = domain.IdentityID(value)
			case "stored_content":
				msg.Content = string(value)
			case "stored_at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					msg.CreatedAt = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		msg.Kind = domain.MessageKindText
		results = append(results, msg)
	}
	return results, nil
}
