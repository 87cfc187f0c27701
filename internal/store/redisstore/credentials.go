// Package redisstore implements store.CredentialStore on Redis hashes:
// one hash per user, one field per model name.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextlevelbuilder/mcpgate/internal/crypto"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

const defaultPrefix = "mcpgate:apikeys:"

type entry struct {
	Secret    string `json:"secret"`
	UpdatedAt int64  `json:"updated_at"`
}

// CredentialStore keeps sealed API keys in Redis.
type CredentialStore struct {
	rdb    redis.UniversalClient
	sealer *crypto.Sealer
	prefix string
	now    func() time.Time
}

// New connects using a redis:// URL.
func New(ctx context.Context, url string, sealer *crypto.Sealer) (*CredentialStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(rdb, sealer, defaultPrefix), nil
}

// NewWithClient wraps an existing client. prefix namespaces the per-user hashes.
func NewWithClient(rdb redis.UniversalClient, sealer *crypto.Sealer, prefix string) *CredentialStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &CredentialStore{rdb: rdb, sealer: sealer, prefix: prefix, now: time.Now}
}

// Close releases the underlying client.
func (s *CredentialStore) Close() error {
	return s.rdb.Close()
}

func (s *CredentialStore) key(username string) string {
	return s.prefix + username
}

func (s *CredentialStore) Get(ctx context.Context, username, model string) (string, error) {
	raw, err := s.rdb.HGet(ctx, s.key(username), model).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return "", fmt.Errorf("decode api key %q: %w", model, err)
	}
	return s.sealer.Open(e.Secret)
}

func (s *CredentialStore) Upsert(ctx context.Context, username, model, secret string) error {
	if err := store.ValidateModelName(model); err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(secret)
	if err != nil {
		return fmt.Errorf("encrypt api key %q: %w", model, err)
	}
	data, err := json.Marshal(entry{Secret: sealed, UpdatedAt: s.now().UTC().UnixMilli()})
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.key(username), model, data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, username, model string) (bool, error) {
	n, err := s.rdb.HDel(ctx, s.key(username), model).Result()
	if err != nil {
		return false, fmt.Errorf("redis hdel: %w", err)
	}
	return n > 0, nil
}

func (s *CredentialStore) List(ctx context.Context, username string) ([]store.CredentialInfo, error) {
	all, err := s.rdb.HGetAll(ctx, s.key(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	out := make([]store.CredentialInfo, 0, len(all))
	for model, raw := range all {
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, store.CredentialInfo{ModelName: model, UpdatedAt: time.UnixMilli(e.UpdatedAt).UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out, nil
}
