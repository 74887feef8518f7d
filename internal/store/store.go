// Package store persists portal data in BadgerDB. Keys are prefixed per
// entity and values are JSON-encoded; message keys embed a zero-padded
// timestamp so recency scans are plain lexicographic iteration.
package store

import (
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user or email already registered")
)

// Open initializes the BadgerDB instance backing every repository.
func Open(path string, log *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	log.Info("badger store opened", "path", path)
	return db, nil
}
