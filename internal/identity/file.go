package identity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileStore keeps the id in a small YAML document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileDocument struct {
	UserID string `yaml:"strombreaker_user_id"`
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read %s", s.path)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", false, errors.Wrapf(err, "decode %s", s.path)
	}
	id := strings.TrimSpace(doc.UserID)
	return id, id != "", nil
}

func (s *FileStore) Set(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}

	raw, err := yaml.Marshal(fileDocument{UserID: id})
	if err != nil {
		return errors.Wrap(err, "encode identity")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace identity file")
}
