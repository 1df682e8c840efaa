// Package localstore persists the entity collections and their derived
// aggregates as JSON documents under fixed keys.
package localstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
)

// Store reads and writes whole collections. None of its methods fail: read
// problems degrade to an empty result and write problems are logged.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// LoadCollection returns the normalized collection of a kind.
func (s *Store) LoadCollection(ctx context.Context, kind model.Kind) []model.Record {
	var records []model.Record
	if !s.LoadJSON(ctx, CollectionKey(kind), &records) {
		return []model.Record{}
	}
	return normalize.NormalizeAll(records, kind)
}

// SaveCollection normalizes and writes the full collection of a kind.
func (s *Store) SaveCollection(ctx context.Context, kind model.Kind, records []model.Record) {
	if records == nil {
		records = []model.Record{}
	}
	s.SaveJSON(ctx, CollectionKey(kind), normalize.NormalizeAll(records, kind))
}

// LoadJSON decodes the document stored under key into dst. It reports false
// when the key is missing or the document cannot be read.
func (s *Store) LoadJSON(ctx context.Context, key string, dst any) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("local store read failed", "key", key, "error", err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("malformed local store data", "key", key, "error", err)
		return false
	}
	return true
}

// SaveJSON encodes v and stores it under key.
func (s *Store) SaveJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encoding local store data", "key", key, "error", err)
		return
	}
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		s.logger.Error("local store write failed", "key", key, "error", err)
	}
}

// Watch subscribes fn to changed keys when the backend can push them. It
// reports false when the backend offers no notifications.
func (s *Store) Watch(ctx context.Context, fn func(key string)) (bool, error) {
	w, ok := s.backend.(Watcher)
	if !ok {
		return false, nil
	}
	if err := w.Watch(ctx, fn); err != nil {
		return false, err
	}
	return true, nil
}
