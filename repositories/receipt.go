package repositories

import (
	"fmt"
	"time"

	"chat-broker/domain"

	"github.com/dgraph-io/badger/v4"
)

type ReceiptRepository struct {
	db *badger.DB
}

func NewReceiptRepository(db *badger.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// MarkRead is idempotent: re-reading the same message overwrites the
// timestamp under the same key.
func (r *ReceiptRepository) MarkRead(room domain.RoomID, messageID string, reader domain.IdentityID, at time.Time) error {
	key := fmt.Sprintf("read:%s:%s:%s", room, messageID, reader)
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(fmt.Sprintf("%d", at.UnixNano())))
	})
}

func (r *ReceiptRepository) ReadBy(room domain.RoomID, messageID string) ([]domain.IdentityID, error) {
	var readers []domain.IdentityID
	prefixStr := fmt.Sprintf("read:%s:%s:", room, messageID)
	prefix := []byte(prefixStr)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			readers = append(readers, domain.IdentityID(it.Item().Key()[len(prefixStr):]))
		}
		return nil
	})
	return readers, err
}
