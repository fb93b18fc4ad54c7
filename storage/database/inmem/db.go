package inmemdb

import (
	"context"
	"sync"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
)

// DB is a map-backed store for tests and local development. It honors the
// same repository contracts as the SQL store, including the student ID
// sequence; transactions degrade to serialized execution without rollback.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users       map[string]*user.User
	resets      map[string]*user.PasswordReset
	profiles    map[string]*user.Profile // keyed by user ID
	activities  []user.Activity
	topics      map[string]*task.Topic
	tasks       map[string]*task.Task
	assignments map[string]*task.AssignedTask

	studentSeq int
}

var _ core.Atomic = (*DB)(nil)

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		resets:      make(map[string]*user.PasswordReset),
		profiles:    make(map[string]*user.Profile),
		topics:      make(map[string]*task.Topic),
		tasks:       make(map[string]*task.Task),
		assignments: make(map[string]*task.AssignedTask),
	}
}

// RunInTx serializes fn against other transactions. There is no rollback;
// tests that need failure paths inject them before any write happens.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(nil)
}
