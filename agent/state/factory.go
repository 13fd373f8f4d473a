package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

const (
	KindMemory   = "memory"
	KindRedis    = "redis"
	KindUpstash  = "upstash"
	KindPostgres = "postgres"
)

type Config struct {
	Kind      string        `split_words:"true" default:"memory"`
	KeyPrefix string        `split_words:"true" default:"chatbot:thread:"`
	TTL       time.Duration `envconfig:"TTL" default:"24h"`
}

// Backends are the connections a checkpointer kind may need. Only the
// one matching Config.Kind has to be set.
type Backends struct {
	Redis   redis.UniversalClient
	Upstash *UpstashConfig
	DB      bun.IDB
}

func New(ctx context.Context, cfg Config, backends Backends) (Checkpointer, error) {
	opts := []Option{WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL)}

	switch kind := strings.ToLower(strings.TrimSpace(cfg.Kind)); kind {
	case KindMemory, "":
		return NewMemoryCheckpointer(), nil
	case KindRedis:
		return NewRedisCheckpointer(backends.Redis, opts...)
	case KindUpstash:
		if backends.Upstash == nil {
			return nil, errors.New("upstash config is required")
		}
		return NewUpstashCheckpointer(*backends.Upstash, opts...)
	case KindPostgres:
		if backends.DB == nil {
			return nil, errors.New("postgres db is required")
		}
		store := NewPostgresCheckpointer(backends.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure checkpoint schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported checkpointer type: %s", kind)
	}
}
