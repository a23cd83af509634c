// Package inmemdb is a process-local store, used in tests and when
// database.engine is "memory".
package inmemdb

import (
	"sync"

	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
)

type (
	DB struct {
		question *questionTable
		user     *userTable
	}

	questionTable struct {
		sync.RWMutex
		table map[string]*question.Question
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
)

func Open() (*DB, error) {
	db := &DB{
		question: &questionTable{table: make(map[string]*question.Question)},
		user:     &userTable{table: make(map[string]*user.User)},
	}
	return db, nil
}

// Reset drops every record.
func (db *DB) Reset() {
	db.question.Lock()
	db.question.table = make(map[string]*question.Question)
	db.question.Unlock()

	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()
}
