package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/services"
)

func TestPostWarble(t *testing.T) {
	e := setupEnv(t)
	alice := e.createUser(t, "alice")

	message := e.postWarble(t, alice, "hello warbler")
	assert.Equal(t, alice.ID, message.UserID)
	assert.Equal(t, "hello warbler", message.Text)
	assert.False(t, message.CreatedAt.IsZero())
}

func TestPostWarbleValidation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")

	_, err := e.messages.Post(ctx, alice.ID.String(), &services.CreateMessageRequest{Text: "   "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = e.messages.Post(ctx, alice.ID.String(),
		&services.CreateMessageRequest{Text: strings.Repeat("a", models.MaxMessageLength+1)})
	assert.ErrorIs(t, err, models.ErrValidation)

	// Exactly at the bound is fine.
	_, err = e.messages.Post(ctx, alice.ID.String(),
		&services.CreateMessageRequest{Text: strings.Repeat("a", models.MaxMessageLength)})
	assert.NoError(t, err)

	_, err = e.messages.Post(ctx, "", &services.CreateMessageRequest{Text: "anonymous warble"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestDeleteWarbleOwnership(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	message := e.postWarble(t, alice, "mine")

	err := e.messages.Delete(ctx, bob.ID.String(), message.ID.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrForbidden)

	// Still present for the author to delete.
	require.NoError(t, e.messages.Delete(ctx, alice.ID.String(), message.ID.String()))

	_, err = e.messages.Get(ctx, message.ID.String())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteWarbleCascadesLikes(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	message := e.postWarble(t, alice, "soon gone")

	require.NoError(t, e.messages.Like(ctx, bob.ID.String(), message.ID.String()))
	require.Equal(t, int64(1), e.countLikes(t))

	require.NoError(t, e.messages.Delete(ctx, alice.ID.String(), message.ID.String()))
	assert.Equal(t, int64(0), e.countLikes(t))
}

func TestSelfLikeRejected(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	message := e.postWarble(t, alice, "my own warble")

	err := e.messages.Like(ctx, alice.ID.String(), message.ID.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSelfReference)
	assert.Equal(t, int64(0), e.countLikes(t))
}

func TestLikeIsIdempotent(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	message := e.postWarble(t, bob, "likeable")

	require.NoError(t, e.messages.Like(ctx, alice.ID.String(), message.ID.String()))
	require.NoError(t, e.messages.Like(ctx, alice.ID.String(), message.ID.String()))

	assert.Equal(t, int64(1), e.countLikes(t))

	count, err := e.messages.GetLikeCount(ctx, message.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLikeMissingWarble(t *testing.T) {
	e := setupEnv(t)
	alice := e.createUser(t, "alice")

	err := e.messages.Like(context.Background(), alice.ID.String(),
		"0d4dc671-7d52-44a5-bfa8-a8b20a2b7e3c")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUnlikeAbsentEdgeIsNoOp(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	message := e.postWarble(t, bob, "never liked")

	require.NoError(t, e.messages.Unlike(ctx, alice.ID.String(), message.ID.String()))
	assert.Equal(t, int64(0), e.countLikes(t))
}

func TestGetLikedMessages(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	first := e.postWarble(t, bob, "first")
	second := e.postWarble(t, bob, "second")

	require.NoError(t, e.messages.Like(ctx, alice.ID.String(), first.ID.String()))
	require.NoError(t, e.messages.Like(ctx, alice.ID.String(), second.ID.String()))

	liked, err := e.messages.GetLikedMessages(ctx, alice.ID.String(), 0, 10)
	require.NoError(t, err)
	require.Len(t, liked, 2)

	ids := []string{liked[0].ID.String(), liked[1].ID.String()}
	assert.Contains(t, ids, first.ID.String())
	assert.Contains(t, ids, second.ID.String())

	liked, err = e.messages.GetLikedMessages(ctx, bob.ID.String(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, liked)
}
