// Package artifact caches the results of compilation requests in Redis.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Drolfothesgnir/pagec/compiler"
	"github.com/Drolfothesgnir/pagec/util"
)

// KeyPrefix is prepended to the keys of cached artifacts.
const KeyPrefix = "artifact:"

// ErrArtifactNotFound is returned for keys which were never stored or have expired.
var ErrArtifactNotFound = errors.New("artifact not found or expired")

// Artifact is a cached compilation result.
type Artifact struct {
	Key       string           `json:"key"`
	Result    *compiler.Result `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

type Store interface {
	SaveArtifact(ctx context.Context, key string, a Artifact, ttl time.Duration) error
	GetArtifact(ctx context.Context, key string) (*Artifact, error)
	DeleteArtifact(ctx context.Context, key string) error
	Close() error
}

type RedisStore struct {
	client *redis.Client
}

func NewStore(config *util.Config) Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: "",
		DB:       0,
	})

	return &RedisStore{client: rdb}
}

// Key derives the cache key of a compilation request from everything that affects its output.
func Key(path, syntax string, source []byte, opts compiler.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%+v\x00", path, syntax, opts)
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

func (store *RedisStore) SaveArtifact(ctx context.Context, key string, a Artifact, ttl time.Duration) error {
	jsonData, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	return store.client.Set(ctx, KeyPrefix+key, jsonData, ttl).Err()
}

// GetArtifact returns ErrArtifactNotFound if the key is unknown or expired.
func (store *RedisStore) GetArtifact(ctx context.Context, key string) (*Artifact, error) {
	jsonData, err := store.client.Get(ctx, KeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal([]byte(jsonData), &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact json: %w", err)
	}

	return &a, nil
}

// DeleteArtifact returns ErrArtifactNotFound if there was nothing to delete.
func (store *RedisStore) DeleteArtifact(ctx context.Context, key string) error {
	n, err := store.client.Del(ctx, KeyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	if n == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// Close releases the Redis connection pool.
func (store *RedisStore) Close() error {
	return store.client.Close()
}
