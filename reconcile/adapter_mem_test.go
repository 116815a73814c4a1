package reconcile

import (
	"context"
	"fmt"
	"sort"
)

// memAdapter is a little in-memory backend used by the tests in this package.
// It keeps real applied rows, so Store/Remove from one run are visible to the
// next, and it records every call in ops so tests can assert exact ordering.
type memAdapter struct {
	hasTable bool
	applied  []Migration[string]

	ops []string

	failExec   map[string]error // action -> error to return
	failBegin  error
	failCommit error
	failStore  error
	failRemove error
}

func newMemAdapter(applied ...Migration[string]) *memAdapter {
	rows := make([]Migration[string], len(applied))
	copy(rows, applied)
	return &memAdapter{hasTable: true, applied: rows}
}

func (a *memAdapter) record(format string, args ...any) {
	a.ops = append(a.ops, fmt.Sprintf(format, args...))
}

func (a *memAdapter) Begin() error {
	a.record("begin")
	return a.failBegin
}

func (a *memAdapter) Commit() error {
	a.record("commit")
	return a.failCommit
}

func (a *memAdapter) Rollback() error {
	a.record("rollback")
	return nil
}

func (a *memAdapter) HasMigrationsTable() (bool, error) { return a.hasTable, nil }

func (a *memAdapter) CreateMigrationsTable() error {
	a.record("create-table")
	a.hasTable = true
	return nil
}

func (a *memAdapter) AppliedMigrations() (Iterator[string], error) {
	rows := make([]Migration[string], len(a.applied))
	copy(rows, a.applied)
	return FromSlice(rows), nil
}

func (a *memAdapter) Exec(action string) error {
	a.record("exec:%s", action)
	if err, ok := a.failExec[action]; ok {
		return err
	}
	return nil
}

func (a *memAdapter) Store(batch []Migration[string]) error {
	a.record("store:%s", ids(batch))
	if a.failStore != nil {
		return a.failStore
	}
	a.applied = append(a.applied, batch...)
	sort.Slice(a.applied, func(i, j int) bool { return a.applied[i].ID < a.applied[j].ID })
	return nil
}

func (a *memAdapter) Remove(batch []Migration[string]) error {
	a.record("remove:%s", ids(batch))
	if a.failRemove != nil {
		return a.failRemove
	}
	gone := map[int64]bool{}
	for _, m := range batch {
		gone[m.ID] = true
	}
	kept := a.applied[:0]
	for _, m := range a.applied {
		if !gone[m.ID] {
			kept = append(kept, m)
		}
	}
	a.applied = kept
	return nil
}

func ids[T any](batch []Migration[T]) string {
	s := ""
	for i, m := range batch {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprint(m.ID)
	}
	return "[" + s + "]"
}

// ctxMemAdapter exposes a memAdapter through the ContextAdapter shape for the
// AsyncReconciler tests.
type ctxMemAdapter struct {
	*memAdapter
}

func (a ctxMemAdapter) Begin(context.Context) error    { return a.memAdapter.Begin() }
func (a ctxMemAdapter) Commit(context.Context) error   { return a.memAdapter.Commit() }
func (a ctxMemAdapter) Rollback(context.Context) error { return a.memAdapter.Rollback() }

func (a ctxMemAdapter) HasMigrationsTable(context.Context) (bool, error) {
	return a.memAdapter.HasMigrationsTable()
}

func (a ctxMemAdapter) CreateMigrationsTable(context.Context) error {
	return a.memAdapter.CreateMigrationsTable()
}

func (a ctxMemAdapter) AppliedMigrations(context.Context) (Iterator[string], error) {
	return a.memAdapter.AppliedMigrations()
}

func (a ctxMemAdapter) Exec(_ context.Context, action string) error {
	return a.memAdapter.Exec(action)
}

func (a ctxMemAdapter) Store(_ context.Context, batch []Migration[string]) error {
	return a.memAdapter.Store(batch)
}

func (a ctxMemAdapter) Remove(_ context.Context, batch []Migration[string]) error {
	return a.memAdapter.Remove(batch)
}
