package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each session as a hash under "<prefix><id>" expiring with the
// session, and indexes session ids per subject in the set "<prefix>sub:<sub>".
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(id string) string      { return r.prefix + id }
func (r *RedisRepository) subKey(sub string) string { return r.prefix + "sub:" + sub }

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.key(s.ID), map[string]interface{}{
			"sub":       s.Sub,
			"name":      s.Name,
			"email":     s.Email,
			"idToken":   s.IDToken,
			"createdAt": s.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expiresAt": s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
		p.Expire(ctx, r.key(s.ID), ttl)
		p.SAdd(ctx, r.subKey(s.Sub), s.ID)
		// the index lives as long as the newest session
		p.Expire(ctx, r.subKey(s.Sub), ttl)
		return nil
	})
	return err
}

func (r *RedisRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	f, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(f) == 0 {
		return nil, nil
	}
	s := &Session{ID: id, Sub: f["sub"], Name: f["name"], Email: f["email"], IDToken: f["idToken"]}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, f["createdAt"]); err != nil {
		return nil, fmt.Errorf("session %s: createdAt: %w", id, err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, f["expiresAt"]); err != nil {
		return nil, fmt.Errorf("session %s: expiresAt: %w", id, err)
	}
	return s, nil
}

func (r *RedisRepository) DeleteByID(ctx context.Context, id string) error {
	sub, err := r.client.HGet(ctx, r.key(id), "sub").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key(id))
		p.SRem(ctx, r.subKey(sub), id)
		return nil
	})
	return err
}

func (r *RedisRepository) DeleteBySubject(ctx context.Context, sub string) (int, error) {
	ids, err := r.client.SMembers(ctx, r.subKey(sub)).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}
	n := 0
	if len(keys) > 0 {
		// ids of sessions that already expired are in the set but no longer counted
		d, err := r.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, err
		}
		n = int(d)
	}
	if err := r.client.Del(ctx, r.subKey(sub)).Err(); err != nil {
		return n, err
	}
	return n, nil
}
