package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/coord/errors"
)

const docExt = ".json"

// FileStore keeps each document at <dir>/<bucket>/<key>.json. Writes go to
// a temporary file in the same directory and are renamed into place.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. Nothing is created until the
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// BucketDir returns the directory backing a bucket.
func (s *FileStore) BucketDir(bucket string) string {
	return filepath.Join(s.dir, bucket)
}

// KeyOf maps a document path back to its key. ok is false for temporary
// and foreign files.
func KeyOf(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, docExt) || strings.HasPrefix(name, ".") {
		return "", false
	}
	key := strings.TrimSuffix(name, docExt)
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

func (s *FileStore) path(bucket, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, bucket, key+docExt), nil
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("create bucket %s", bucket))
	}

	tmp, err := os.CreateTemp(dir, "."+key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailed, "create temporary file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, errors.ErrCodeStoreFailed, "write temporary file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrCodeStoreFailed, "close temporary file")
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrCodeStoreFailed, "set file mode")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("replace %s", path))
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	path, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.RecordNotFound(bucket, key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("read %s", path))
	}
	return data, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, bucket, key string) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("delete %s", path))
	}
	return nil
}

// Keys implements Store.
func (s *FileStore) Keys(ctx context.Context, bucket string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailed, fmt.Sprintf("list bucket %s", bucket))
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := KeyOf(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
