package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// diskUser is stored twice: under "user:{email}" for login and under
// "userid:{id}" for lookups by identity.
type diskUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	PasswordHash  string `json:"password_hash"`
	Role          string `json:"role"`
	VoiceEnabled  bool   `json:"voice_enabled"`
	VideoEnabled  bool   `json:"video_enabled"`
	RatePerMinute int    `json:"rate_per_minute"`
	CreatedAt     int64  `json:"created_at"`
}

// CreateUser persists the user in BadgerDB and returns the newly generated
// user ID. Providers start with calls enabled and a default rate; both are
// meant to be adjusted through their profile later.
func (u *UserRepository) CreateUser(email, hashedPassword string, role domain.Role) (string, error) {
	newID := uuid.New().String()
	stored := diskUser{
		ID:           newID,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         string(role),
		CreatedAt:    time.Now().Unix(),
	}
	if role == domain.RoleProvider {
		stored.VoiceEnabled = true
		stored.VideoEnabled = true
		stored.RatePerMinute = 100
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte("user:" + email)
		if _, err = txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err = txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte("userid:"+newID), data)
	})

	return newID, err
}

func (u *UserRepository) GetUserByEmail(email string) (contract.User, error) {
	return u.get("user:" + email)
}

func (u *UserRepository) GetUserByID(id string) (contract.User, error) {
	return u.get("userid:" + id)
}

func (u *UserRepository) CallKindEnabled(id string, kind domain.CallKind) (bool, error) {
	user, err := u.GetUserByID(id)
	if err != nil {
		return false, err
	}
	switch kind {
	case domain.CallKindVoice:
		return user.VoiceEnabled, nil
	case domain.CallKindVideo:
		return user.VideoEnabled, nil
	}
	return false, nil
}

func (u *UserRepository) get(key string) (contract.User, error) {
	var stored diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return contract.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return contract.User{}, err
	}
	return contract.User{
		ID:            stored.ID,
		Email:         stored.Email,
		PasswordHash:  stored.PasswordHash,
		Role:          domain.Role(stored.Role),
		VoiceEnabled:  stored.VoiceEnabled,
		VideoEnabled:  stored.VideoEnabled,
		RatePerMinute: stored.RatePerMinute,
	}, nil
}
