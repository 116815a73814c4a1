package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mirajehossain/goreconcilex/internal/checksum"
	"github.com/mirajehossain/goreconcilex/reconcile"
)

// Adapter drives one MySQL database for the reconciler. It is the
// suspension-flavored implementation (every call takes a context and blocks
// on the round-trip); Blocking wraps it for the synchronous contract. Not
// safe for concurrent use: one Adapter, one reconciliation at a time.
type Adapter struct {
	db    *sql.DB
	table string
	tx    *sql.Tx
}

var _ reconcile.ContextAdapter[string] = (*Adapter)(nil)

var (
	errNoTx   = errors.New("no open transaction")
	errOpenTx = errors.New("transaction already open")
)

func NewAdapter(db *sql.DB, table string) *Adapter {
	return &Adapter{db: db, table: table}
}

func (a *Adapter) Begin(ctx context.Context) error {
	if a.tx != nil {
		return errOpenTx
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	a.tx = tx
	return nil
}

func (a *Adapter) Commit(context.Context) error {
	if a.tx == nil {
		return errNoTx
	}
	err := a.tx.Commit()
	a.tx = nil
	return err
}

func (a *Adapter) Rollback(context.Context) error {
	if a.tx == nil {
		return errNoTx
	}
	err := a.tx.Rollback()
	a.tx = nil
	return err
}

func (a *Adapter) HasMigrationsTable(ctx context.Context) (bool, error) {
	row := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", a.table)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (a *Adapter) CreateMigrationsTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  version BIGINT NOT NULL PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  up_sql MEDIUMTEXT NOT NULL,
  down_sql MEDIUMTEXT NOT NULL,
  checksum CHAR(64) NOT NULL,
  applied_at TIMESTAMP(6) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`, a.table)
	_, err := a.db.ExecContext(ctx, ddl)
	return err
}

// AppliedMigrations streams the recorded history in version order. The
// returned iterator holds a live *sql.Rows; it is single-pass and closes the
// rows on exhaustion or error.
func (a *Adapter) AppliedMigrations(ctx context.Context) (reconcile.Iterator[string], error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT version, name, up_sql, down_sql, applied_at FROM %s ORDER BY version ASC", a.table))
	if err != nil {
		return nil, err
	}
	return &rowIterator{rows: rows}, nil
}

type rowIterator struct {
	rows *sql.Rows
}

func (it *rowIterator) Next() (reconcile.Migration[string], bool, error) {
	var zero reconcile.Migration[string]
	if !it.rows.Next() {
		err := it.rows.Err()
		_ = it.rows.Close()
		return zero, false, err
	}
	var m reconcile.Migration[string]
	if err := it.rows.Scan(&m.ID, &m.Name, &m.Up, &m.Down, &m.AppliedAt); err != nil {
		_ = it.rows.Close()
		return zero, false, err
	}
	return m, true, nil
}

func (a *Adapter) Exec(ctx context.Context, action string) error {
	_, err := a.execer().ExecContext(ctx, action)
	return err
}

func (a *Adapter) Store(ctx context.Context, batch []reconcile.Migration[string]) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*6)
	for _, m := range batch {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		args = append(args, m.ID, m.Name, m.Up, m.Down, checksum.SumString(m.Up), m.AppliedAt)
	}
	q := fmt.Sprintf("INSERT INTO %s (version, name, up_sql, down_sql, checksum, applied_at) VALUES %s",
		a.table, strings.Join(placeholders, ", "))
	_, err := a.execer().ExecContext(ctx, q, args...)
	return err
}

func (a *Adapter) Remove(ctx context.Context, batch []reconcile.Migration[string]) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch))
	for _, m := range batch {
		placeholders = append(placeholders, "?")
		args = append(args, m.ID)
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE version IN (%s)", a.table, strings.Join(placeholders, ", "))
	_, err := a.execer().ExecContext(ctx, q, args...)
	return err
}

type execContexter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer routes statements through the open transaction when there is one.
// The step methods on a reconciler can run without a transaction; Call never
// does.
func (a *Adapter) execer() execContexter {
	if a.tx != nil {
		return a.tx
	}
	return a.db
}

// Blocking exposes the adapter through the synchronous contract.
func (a *Adapter) Blocking() reconcile.Adapter[string] {
	return blocking{a}
}

type blocking struct {
	a *Adapter
}

func (b blocking) Begin() error    { return b.a.Begin(context.Background()) }
func (b blocking) Commit() error   { return b.a.Commit(context.Background()) }
func (b blocking) Rollback() error { return b.a.Rollback(context.Background()) }

func (b blocking) HasMigrationsTable() (bool, error) {
	return b.a.HasMigrationsTable(context.Background())
}

func (b blocking) CreateMigrationsTable() error {
	return b.a.CreateMigrationsTable(context.Background())
}

func (b blocking) AppliedMigrations() (reconcile.Iterator[string], error) {
	return b.a.AppliedMigrations(context.Background())
}

func (b blocking) Exec(action string) error { return b.a.Exec(context.Background(), action) }

func (b blocking) Store(batch []reconcile.Migration[string]) error {
	return b.a.Store(context.Background(), batch)
}

func (b blocking) Remove(batch []reconcile.Migration[string]) error {
	return b.a.Remove(context.Background(), batch)
}
