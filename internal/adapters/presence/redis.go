// Package presence implements the shared presence registry.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Pairline/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	onlineKey = "online"
	statusKey = "status"
	seqKey    = "seq"
)

// RedisStore keeps eligible users in a sorted set scored by a global
// registration sequence, so every process sees the same FIFO order.
// Statuses live in a hash next to it.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and pings it. An unreachable server is
// an error: the core must not run without its presence registry.
func NewRedisStore(ctx context.Context, redisURL, keyPrefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, keyPrefix), nil
}

func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// enqueue queues uid by a fresh sequence number. With requeue an existing
// entry is replaced in the same transaction, so the user moves to the tail.
func (s *RedisStore) enqueue(ctx context.Context, uid domain.UserID, requeue bool) error {
	seq, err := s.client.Incr(ctx, s.key(seqKey)).Result()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if requeue {
			p.ZRem(ctx, s.key(onlineKey), string(uid))
		}
		p.ZAddNX(ctx, s.key(onlineKey), redis.Z{Score: float64(seq), Member: string(uid)})
		p.HSet(ctx, s.key(statusKey), string(uid), string(domain.StatusOnline))
		return nil
	})
	return err
}

func (s *RedisStore) AddOnline(ctx context.Context, uid domain.UserID) error {
	if err := s.enqueue(ctx, uid, false); err != nil {
		return fmt.Errorf("add online %s: %w", uid, err)
	}
	return nil
}

func (s *RedisStore) RemoveOnline(ctx context.Context, uid domain.UserID) error {
	if err := s.client.ZRem(ctx, s.key(onlineKey), string(uid)).Err(); err != nil {
		return fmt.Errorf("remove online %s: %w", uid, err)
	}
	return nil
}

func (s *RedisStore) ListOnline(ctx context.Context) ([]domain.UserID, error) {
	members, err := s.client.ZRange(ctx, s.key(onlineKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list online: %w", err)
	}
	out := make([]domain.UserID, len(members))
	for i, m := range members {
		out[i] = domain.UserID(m)
	}
	return out, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, uid domain.UserID, status domain.PresenceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown presence status %q", status)
	}
	var err error
	switch status {
	case domain.StatusOnline:
		// Released users go to the tail of the queue.
		err = s.enqueue(ctx, uid, true)
	case domain.StatusBusy:
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.ZRem(ctx, s.key(onlineKey), string(uid))
			p.HSet(ctx, s.key(statusKey), string(uid), string(domain.StatusBusy))
			return nil
		})
	case domain.StatusOffline:
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.ZRem(ctx, s.key(onlineKey), string(uid))
			p.HDel(ctx, s.key(statusKey), string(uid))
			return nil
		})
	}
	if err != nil {
		return fmt.Errorf("set status %s=%s: %w", uid, status, err)
	}
	return nil
}

// Status reads the last written status; a user with none is offline.
func (s *RedisStore) Status(ctx context.Context, uid domain.UserID) (domain.PresenceStatus, error) {
	v, err := s.client.HGet(ctx, s.key(statusKey), string(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StatusOffline, nil
	}
	if err != nil {
		return "", fmt.Errorf("status %s: %w", uid, err)
	}
	return domain.PresenceStatus(v), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
