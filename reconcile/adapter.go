package reconcile

import "context"

// Adapter is the blocking storage contract the reconciler drives. The core
// never implements it; internal/db carries the MySQL implementation and tests
// use an in-memory one.
//
// A reconciliation invokes Begin exactly once, then exactly one of Commit or
// Rollback. AppliedMigrations must yield previously applied migrations in
// ascending ID order, complete with their Down actions; the reconciler
// re-validates the ordering as it reads.
type Adapter[T any] interface {
	Begin() error
	Commit() error
	Rollback() error

	// HasMigrationsTable reports whether the bookkeeping storage exists.
	// CreateMigrationsTable is only invoked when it does not.
	HasMigrationsTable() (bool, error)
	CreateMigrationsTable() error

	// AppliedMigrations opens a single-pass read of the applied history.
	AppliedMigrations() (Iterator[T], error)

	// Exec runs one forward or backward action.
	Exec(action T) error

	// Store persists one batch of newly applied migrations, each already
	// stamped with AppliedAt. Remove deletes the bookkeeping records for one
	// batch of rolled-back migrations. Both are issued once per batch, after
	// every action in the batch succeeded.
	Store(batch []Migration[T]) error
	Remove(batch []Migration[T]) error
}

// ContextAdapter is the suspension-flavored storage contract: the same
// operations as Adapter, but every call may park the calling goroutine until
// the storage round-trip completes. There is still a single logical thread of
// control per reconciliation; the reconciler never issues concurrent calls.
type ContextAdapter[T any] interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	HasMigrationsTable(ctx context.Context) (bool, error)
	CreateMigrationsTable(ctx context.Context) error

	AppliedMigrations(ctx context.Context) (Iterator[T], error)

	Exec(ctx context.Context, action T) error

	Store(ctx context.Context, batch []Migration[T]) error
	Remove(ctx context.Context, batch []Migration[T]) error
}

// blockingShim lets the shared engine drive a blocking Adapter through the
// ContextAdapter shape. The context is ignored; blocking adapters cannot
// suspend.
type blockingShim[T any] struct {
	a Adapter[T]
}

func (s blockingShim[T]) Begin(context.Context) error    { return s.a.Begin() }
func (s blockingShim[T]) Commit(context.Context) error   { return s.a.Commit() }
func (s blockingShim[T]) Rollback(context.Context) error { return s.a.Rollback() }

func (s blockingShim[T]) HasMigrationsTable(context.Context) (bool, error) {
	return s.a.HasMigrationsTable()
}

func (s blockingShim[T]) CreateMigrationsTable(context.Context) error {
	return s.a.CreateMigrationsTable()
}

func (s blockingShim[T]) AppliedMigrations(context.Context) (Iterator[T], error) {
	return s.a.AppliedMigrations()
}

func (s blockingShim[T]) Exec(_ context.Context, action T) error { return s.a.Exec(action) }

func (s blockingShim[T]) Store(_ context.Context, batch []Migration[T]) error {
	return s.a.Store(batch)
}

func (s blockingShim[T]) Remove(_ context.Context, batch []Migration[T]) error {
	return s.a.Remove(batch)
}
