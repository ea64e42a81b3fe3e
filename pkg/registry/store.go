// Package registry is the key-value store the coordination layer persists
// its records in. Each bucket holds one JSON document per key. Writers only
// ever write keys they own; any process may scan a bucket.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/util/sanitize"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,127}$`)

// Store persists opaque documents under (bucket, key).
type Store interface {
	// Put replaces the document at (bucket, key). Readers never observe a
	// partially written document.
	Put(ctx context.Context, bucket, key string, data []byte) error
	// Get returns the document or a RECORD_NOT_FOUND error.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// Keys lists the keys in a bucket in sorted order.
	Keys(ctx context.Context, bucket string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// ValidateKey reports whether key can be stored.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.HasSuffix(key, ".tmp") {
		return errors.InvalidKey(key)
	}
	return nil
}

// PutJSON encodes v and stores it.
func PutJSON(ctx context.Context, s Store, bucket, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("encode %s record", bucket))
	}
	return s.Put(ctx, bucket, key, data)
}

// GetJSON loads and decodes the document at (bucket, key). Empty or
// undecodable documents yield a RECORD_CORRUPT error.
func GetJSON(ctx context.Context, s Store, bucket, key string, v interface{}) error {
	data, err := s.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return errors.RecordCorrupt(bucket, key, fmt.Errorf("empty document"))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.RecordCorrupt(bucket, key, err)
	}
	return nil
}

// Open returns the store selected by cfg. File stores live under
// registryDir; Redis stores are namespaced by cfg.Namespace, falling back
// to the project directory name.
func Open(ctx context.Context, cfg config.RegistryConfig, rootDir, registryDir string) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		return NewFileStore(registryDir), nil
	case config.BackendRedis:
		ns := cfg.Namespace
		if ns == "" {
			ns = filepath.Base(rootDir)
		}
		return NewRedisStore(ctx, cfg.RedisURL, sanitize.ForNamespace(ns))
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown registry backend %q", cfg.Backend))
	}
}
