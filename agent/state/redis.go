package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCheckpointer stores checkpoints as JSON strings in Redis.
type RedisCheckpointer struct {
	client redis.UniversalClient
	opts   storeOptions
}

func NewRedisCheckpointer(client redis.UniversalClient, opts ...Option) (*RedisCheckpointer, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RedisCheckpointer{client: client, opts: o}, nil
}

func (s *RedisCheckpointer) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	key, err := s.opts.key(threadID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeCheckpoint(raw)
}

func (s *RedisCheckpointer) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.prepare(time.Now()); err != nil {
		return err
	}
	key, err := s.opts.key(cp.ThreadID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisCheckpointer) Delete(ctx context.Context, threadID string) error {
	key, err := s.opts.key(threadID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
