package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore keeps one YAML document per key inside a directory. Writes go
// through a temp file and rename so a state file is never observed half
// written, even when a concurrent run reads it.
type FileStore struct {
	dir string
}

type fileEnvelope struct {
	Key       string    `yaml:"key"`
	Value     []byte    `yaml:"value"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
	SavedAt   time.Time `yaml:"saved_at"`
}

// NewFile creates the directory if needed and returns a store over it.
func NewFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// fileFor maps a state key to a stable file name. Keys contain locale and
// tenant fragments, so they are digested rather than sanitized.
func (s *FileStore) fileFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".yaml")
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.fileFor(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s: %v", ErrStorage, key, err)
	}

	var env fileEnvelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("%w: parse %s: %v", ErrStorage, key, err)
	}

	if !env.ExpiresAt.IsZero() && time.Now().After(env.ExpiresAt) {
		_ = os.Remove(s.fileFor(key))
		return nil, false, nil
	}

	return env.Value, true, nil
}

func (s *FileStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	env := fileEnvelope{
		Key:     key,
		Value:   value,
		SavedAt: time.Now(),
	}
	if ttl > 0 {
		env.ExpiresAt = time.Now().Add(ttl)
	}

	data, err := yaml.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrStorage, key, err)
	}

	path := s.fileFor(key)
	tmp, err := os.CreateTemp(s.dir, ".state-*")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", ErrStorage, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", ErrStorage, key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (s *FileStore) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.fileFor(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("%w: clear: %v", ErrStorage, err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: clear: %v", ErrStorage, err)
		}
	}
	return nil
}
