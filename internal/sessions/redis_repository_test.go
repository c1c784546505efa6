package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisRepo(t *testing.T, prefix string) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, prefix), m
}

func newSession(id, sub string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Sub: sub, Name: "Ada", Email: "ada@example.com", IDToken: "raw-id-token", CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestRedisRepository_StoresHashWithIndex(t *testing.T) {
	repo, m := redisRepo(t, "test:session:")
	ctx := context.Background()
	s := newSession("s1", "sub-1", time.Hour)

	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, "sub-1", m.HGet("test:session:s1", "sub"))
	assert.Equal(t, "raw-id-token", m.HGet("test:session:s1", "idToken"))
	assert.True(t, m.TTL("test:session:s1") > 59*time.Minute)
	members, err := m.Members("test:session:sub:sub-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, members)

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.WithinDuration(t, s.ExpiresAt, got.ExpiresAt, time.Millisecond)

	require.NoError(t, repo.DeleteByID(ctx, "s1"))
	got, err = repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, m.Exists("test:session:s1"))
	// deleting an unknown session is fine
	require.NoError(t, repo.DeleteByID(ctx, "s1"))
}

func TestRedisRepository_ExpiresWithSession(t *testing.T) {
	repo, m := redisRepo(t, "")
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s2", "sub-2", 2*time.Second)))
	require.True(t, m.Exists("session:s2"))

	m.FastForward(3 * time.Second)
	got, err := repo.GetByID(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Error(t, repo.Create(ctx, newSession("s3", "sub-2", -time.Second)))
}

func TestRedisRepository_DeleteBySubject(t *testing.T) {
	repo, m := redisRepo(t, "")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newSession("laptop", "sub-1", time.Hour)))
	require.NoError(t, repo.Create(ctx, newSession("phone", "sub-1", time.Hour)))
	require.NoError(t, repo.Create(ctx, newSession("other", "sub-2", time.Hour)))

	n, err := repo.DeleteBySubject(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, m.Exists("session:laptop"))
	assert.False(t, m.Exists("session:sub:sub-1"))
	assert.True(t, m.Exists("session:other"))

	n, err = repo.DeleteBySubject(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
