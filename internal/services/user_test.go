package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/services"
)

func TestSignupAppliesDefaults(t *testing.T) {
	e := setupEnv(t)

	user, err := e.users.Signup(context.Background(), &services.SignupRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultImageURL, user.ImageURL)
	assert.Equal(t, models.DefaultHeaderImageURL, user.HeaderImageURL)
	assert.Equal(t, models.DefaultLocation, user.Location)
	assert.NotEqual(t, "password123", user.Password, "password must be stored hashed")
}

func TestSignupConflicts(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.createUser(t, "alice")

	_, err := e.users.Signup(ctx, &services.SignupRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
	// The message must not reveal which field collided.
	assert.EqualError(t, err, "username or email already taken")

	_, err = e.users.Signup(ctx, &services.SignupRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAuthenticate(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")

	user, err := e.users.Authenticate(ctx, &services.LoginRequest{
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	_, err = e.users.Authenticate(ctx, &services.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = e.users.Authenticate(ctx, &services.LoginRequest{
		Username: "nobody",
		Password: "password123",
	})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestUpdateProfileWrongPasswordChangesNothing(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")

	newBio := "changed bio"
	_, err := e.users.UpdateProfile(ctx, alice.ID.String(), &services.UpdateProfileRequest{
		CurrentPassword: "wrong",
		Bio:             &newBio,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	reloaded, err := e.users.GetByID(ctx, alice.ID.String())
	require.NoError(t, err)
	assert.Empty(t, reloaded.Bio)
}

func TestUpdateProfile(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")

	newBio := "warbling away"
	newLocation := "Treetops"
	updated, err := e.users.UpdateProfile(ctx, alice.ID.String(), &services.UpdateProfileRequest{
		CurrentPassword: "password123",
		Bio:             &newBio,
		Location:        &newLocation,
	})
	require.NoError(t, err)
	assert.Equal(t, "warbling away", updated.Bio)
	assert.Equal(t, "Treetops", updated.Location)
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	e.createUser(t, "bob")

	taken := "bob"
	_, err := e.users.UpdateProfile(ctx, alice.ID.String(), &services.UpdateProfileRequest{
		CurrentPassword: "password123",
		Username:        &taken,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestDeleteAccountCascades(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")

	// Alice follows bob, bob follows alice, both post, cross-likes.
	_, err := e.graph.Follow(ctx, alice.ID.String(), bob.ID.String())
	require.NoError(t, err)
	_, err = e.graph.Follow(ctx, bob.ID.String(), alice.ID.String())
	require.NoError(t, err)

	aliceWarble := e.postWarble(t, alice, "from alice")
	bobWarble := e.postWarble(t, bob, "from bob")
	require.NoError(t, e.messages.Like(ctx, alice.ID.String(), bobWarble.ID.String()))
	require.NoError(t, e.messages.Like(ctx, bob.ID.String(), aliceWarble.ID.String()))

	require.NoError(t, e.users.DeleteAccount(ctx, alice.ID.String()))

	// No follow or like edge references alice, and her messages are gone.
	assert.Equal(t, int64(0), e.countFollows(t))
	assert.Equal(t, int64(0), e.countLikes(t))

	_, err = e.users.GetByID(ctx, alice.ID.String())
	assert.ErrorIs(t, err, models.ErrNotFound)

	count, err := e.messageRepo.CountByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Bob and his warble survive.
	_, err = e.users.GetByID(ctx, bob.ID.String())
	require.NoError(t, err)
	_, err = e.messages.Get(ctx, bobWarble.ID.String())
	require.NoError(t, err)
}
