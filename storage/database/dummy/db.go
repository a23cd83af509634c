// Package dummydb is the store used while the configured database cannot be
// reached: every call fails with core.ErrUnavailable.
package dummydb

import (
	"github.com/homeworkhelper/api/core"
)

type DB struct {
	cause error
}

// Open returns an unavailable store. cause is what made the real database unreachable.
func Open(cause error) *DB {
	return &DB{cause: cause}
}

func (db *DB) err() error {
	return core.ErrUnavailable
}

// Cause is the error that made the configured database unreachable.
func (db *DB) Cause() error {
	return db.cause
}
