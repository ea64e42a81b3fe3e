package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/grovetools/coord/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "coord"

// RedisStore keeps documents as plain string values under
// coord:<namespace>:<bucket>:<key>. It lets sessions on machines without a
// shared filesystem see each other.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, namespace string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, errors.ConfigInvalid("registry.redis_url is required for the redis backend")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse redis url")
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailed, "failed to connect to redis")
	}

	return NewRedisStoreWithClient(client, namespace), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) prefix(bucket string) string {
	return fmt.Sprintf("%s:%s:%s:", redisKeyPrefix, s.namespace, bucket)
}

func (s *RedisStore) key(bucket, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return s.prefix(bucket) + key, nil
}

// Put implements Store. SET replaces the value atomically.
func (s *RedisStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	k, err := s.key(bucket, key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, k, data, 0).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("failed to set %s", k))
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	k, err := s.key(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.RecordNotFound(bucket, key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("failed to get %s", k))
	}
	return data, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, bucket, key string) error {
	k, err := s.key(bucket, key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("failed to delete %s", k))
	}
	return nil
}

// Keys implements Store using SCAN so large registries never block the
// server.
func (s *RedisStore) Keys(ctx context.Context, bucket string) ([]string, error) {
	prefix := s.prefix(bucket)
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), prefix)
		if ValidateKey(key) == nil {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("failed to scan %s", prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
