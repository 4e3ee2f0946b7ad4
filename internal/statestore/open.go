// Package statestore persists the crawl scheduler state.
package statestore

import (
	"fmt"

	"realestate-watch/internal/crawljob"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is a state store that may hold resources until closed.
type Store interface {
	crawljob.StateStore
	crawljob.Locker
	Close() error
}

// Open returns the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return nopCloser{NewFileStore(path)}, nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

type nopCloser struct {
	*FileStore
}

func (nopCloser) Close() error { return nil }
