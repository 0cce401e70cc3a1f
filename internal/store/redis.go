package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hopeland/leasebot/internal/session"
)

// RedisStore keeps sessions in redis so several bot replicas can share
// them. A positive ttl expires idle sessions; zero keeps them forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ session.Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, subjectID string, now time.Time) (session.Session, error) {
	sess, err := s.Lookup(ctx, subjectID)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(subjectID, now), nil
	}
	if err != nil {
		return session.Session{}, err
	}
	sess.LastActivityAt = now
	return sess, nil
}

func (s *RedisStore) Lookup(ctx context.Context, subjectID string) (session.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(subjectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("store: failed to load session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return session.Session{}, fmt.Errorf("store: failed to decode session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store: failed to marshal session: %w", err)
	}
	// Handed-off sessions never expire; a human is still on the thread.
	ttl := s.ttl
	if sess.HandedOff() {
		ttl = 0
	}
	if err := s.client.Set(ctx, sessionKey(sess.SubjectID), data, ttl).Err(); err != nil {
		return fmt.Errorf("store: failed to persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, subjectID string) error {
	if err := s.client.Del(ctx, sessionKey(subjectID)).Err(); err != nil {
		return fmt.Errorf("store: failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(subjectID string) string {
	return fmt.Sprintf("leasebot:session:%s", subjectID)
}
