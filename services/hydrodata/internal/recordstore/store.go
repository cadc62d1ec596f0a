// Package recordstore persists raw response bodies keyed by request identity.
package recordstore

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidKey is returned for keys that cannot name a record.
var ErrInvalidKey = errors.New("invalid record key")

// Store is a content-addressed blob store. Records are written once per key
// and never expire.
type Store interface {
	// Get returns the stored bytes and whether a record exists for key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores content under key, replacing any previous record.
	Put(ctx context.Context, key string, content []byte) error
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
