// Package identity persists the opaque user id the widget sends to the
// wellness backend. The id is created once and reused across sessions.
package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Key is the name under which the id is stored.
const Key = "strombreaker_user_id"

var ErrEmptyID = errors.New("identity: empty user id")

// Store is a get/set store for a single opaque string.
type Store interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, id string) error
}

// createMu serializes GetOrCreate so concurrent first calls agree on one id.
var createMu sync.Mutex

// GetOrCreate returns the stored id, creating and storing a new one when absent.
func GetOrCreate(ctx context.Context, store Store) (string, error) {
	createMu.Lock()
	defer createMu.Unlock()

	id, ok, err := store.Get(ctx)
	if err != nil {
		return "", errors.Wrap(err, "identity: get")
	}
	if ok && strings.TrimSpace(id) != "" {
		return id, nil
	}

	id = NewID()
	if err := store.Set(ctx, id); err != nil {
		return "", errors.Wrap(err, "identity: set")
	}
	log.Info().Str("component", "identity").Str("user_id", id).Msg("created user id")
	return id, nil
}

// NewID returns a fresh opaque user id.
func NewID() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "user_" + token[:12]
}

// Open builds the store selected by backend ("memory", "file" or "sqlite").
func Open(backend, path string) (Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "file":
		return NewFileStore(path), noop, nil
	case "memory":
		return NewMemoryStore(""), noop, nil
	case "sqlite":
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, errors.Errorf("identity: unknown backend %q", backend)
	}
}
