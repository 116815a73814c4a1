package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Advisory is a MySQL advisory lock (GET_LOCK/RELEASE_LOCK) held on a
// dedicated connection. The CLI takes it around a reconciliation so only one
// process reshapes a given schema at a time; the reconciler itself assumes
// this kind of external locking exists.
type Advisory struct {
	conn *sql.Conn
	key  string
	held bool
}

var ErrNotAcquired = errors.New("advisory lock not acquired")

func New(key string) *Advisory {
	return &Advisory{key: key}
}

func (a *Advisory) Acquire(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if a.held {
		return nil
	}
	var err error
	a.conn, err = db.Conn(ctx)
	if err != nil {
		return err
	}
	row := a.conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.key, int(timeout.Seconds()))
	var got sql.NullInt64
	if err := row.Scan(&got); err != nil {
		_ = a.conn.Close()
		return err
	}
	if !got.Valid || got.Int64 != 1 {
		_ = a.conn.Close()
		return ErrNotAcquired
	}
	a.held = true
	return nil
}

func (a *Advisory) Release(ctx context.Context) error {
	if !a.held || a.conn == nil {
		return nil
	}
	row := a.conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.key)
	var rel sql.NullInt64
	_ = row.Scan(&rel) // best effort, the connection close frees it anyway
	a.held = false
	return a.conn.Close()
}

func (a *Advisory) Key() string { return a.key }

// KeyFor builds the lock name for a database/table pair.
func KeyFor(database, table string) string {
	return fmt.Sprintf("goreconcilex:%s:%s", database, table)
}
