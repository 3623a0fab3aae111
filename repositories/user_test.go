package repositories

import (
	"testing"

	"chat-broker/domain"
	errs "chat-broker/errors"

	"github.com/stretchr/testify/require"
)

func Test_Create_And_Fetch_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	id, err := repository.CreateUser("alice@example.com", "$argon2id$fake", domain.RoleRequester)
	req.NoError(err)
	req.NotEmpty(id)

	// Both lookup paths resolve the same record
	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	byID, err := repository.GetUserByID(id)
	req.NoError(err)
	req.Equal(byEmail, byID)
	req.Equal(domain.RoleRequester, byID.Role)
}

func Test_Create_User_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.CreateUser("alice@example.com", "hash", domain.RoleRequester)
	req.NoError(err)

	_, err = repository.CreateUser("alice@example.com", "hash", domain.RoleProvider)
	req.ErrorIs(err, errs.ErrUserAlreadyExists)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errs.ErrUserNotFound)
	_, err = repository.GetUserByID("nope")
	req.ErrorIs(err, errs.ErrUserNotFound)
}

func Test_Provider_Gets_Call_Capabilities(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	providerID, err := repository.CreateUser("pro@example.com", "hash", domain.RoleProvider)
	req.NoError(err)
	requesterID, err := repository.CreateUser("req@example.com", "hash", domain.RoleRequester)
	req.NoError(err)

	voice, err := repository.CallKindEnabled(providerID, domain.CallKindVoice)
	req.NoError(err)
	req.True(voice)
	video, err := repository.CallKindEnabled(providerID, domain.CallKindVideo)
	req.NoError(err)
	req.True(video)

	voice, err = repository.CallKindEnabled(requesterID, domain.CallKindVoice)
	req.NoError(err)
	req.False(voice)
}
