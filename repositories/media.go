package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"chat-broker/errors"

	"github.com/dgraph-io/badger/v4"
)

type MediaRepository struct {
	db *badger.DB
}

func NewMediaRepository(db *badger.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

type diskMedia struct {
	Mime string `json:"mime"`
	Data []byte `json:"data"`
}

func (m *MediaRepository) StoreMedia(id string, mime string, data []byte) error {
	value, err := json.Marshal(diskMedia{Mime: mime, Data: data})
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("media:"+id), value)
	})
}

func (m *MediaRepository) GetMedia(id string) (string, []byte, error) {
	var stored diskMedia
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("media:" + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", nil, fmt.Errorf("%w: media %s", errors.ErrUnsupportedMedia, id)
	}
	if err != nil {
		return "", nil, err
	}
	return stored.Mime, stored.Data, nil
}
