package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateValidateDelete(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, Session{Sub: "sub-1", Email: "a@b.c"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, time.Hour, sess.ExpiresAt.Sub(sess.CreatedAt))

	got, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a@b.c", got.Email)

	require.NoError(t, svc.Delete(ctx, sess.ID))
	got, err = svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	// deleting twice is fine
	require.NoError(t, svc.Delete(ctx, sess.ID))
}

func TestService_RequiresSubject(t *testing.T) {
	_, err := NewService(NewMemoryRepository()).CreateSession(context.Background(), Session{Email: "a@b.c"}, time.Hour)
	require.Error(t, err)
}

func TestService_ExpiredSessionIsRemoved(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, Session{Sub: "sub-1"}, time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	got, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, repo.Len())
}

func TestService_RevokeSubject(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	for _, sub := range []string{"sub-1", "sub-1", "sub-2"} {
		_, err := svc.CreateSession(ctx, Session{Sub: sub}, time.Hour)
		require.NoError(t, err)
	}

	n, err := svc.RevokeSubject(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, repo.Len())
}
