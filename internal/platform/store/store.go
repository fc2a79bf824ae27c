// Package store is the key-value persistence layer behind every repository.
// Values are opaque JSON documents addressed by namespaced string keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when no value exists for a key.
var ErrNotFound = errors.New("store: key not found")

// Namespace prefixes every key written by the application.
const Namespace = "gest_ultrassom"

// Store loads, saves and removes JSON values by key.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Key builds the namespaced key "gest_ultrassom:<userID>:<kind>".
func Key(userID, kind string) string {
	return Namespace + ":" + userID + ":" + kind
}

// UserFromKey extracts the user id from a key built by Key for the given
// kind. User ids may themselves contain ':'.
func UserFromKey(key, kind string) (string, bool) {
	prefix, suffix := Namespace+":", ":"+kind
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
	if id == "" {
		return "", false
	}
	return id, true
}

// LoadJSON loads key and decodes it into v.
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON encodes v and saves it under key.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, raw)
}
