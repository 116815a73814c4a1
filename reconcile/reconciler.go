// Package reconcile makes a database's applied migration history match a
// code-defined migration list. It diffs the two sequences, rolls back
// everything applied past their common prefix (newest first), then applies
// everything defined past it (oldest first), inside one adapter-level
// transaction. Storage specifics live behind the Adapter contracts; this
// package never touches SQL itself.
package reconcile

import "context"

// Reconciler drives the reconciliation against a blocking Adapter: every
// storage call returns only when complete and the whole run stays on the
// caller's goroutine. A Reconciler is not safe for concurrent use; after a
// failed Call it stays bound to the adapter until Reset.
//
// The step methods below Call exist so the protocol's stages can be verified
// in isolation. Production code should only use Call or the package-level
// Migrate.
type Reconciler[T any] struct {
	eng engine[T]
}

// NewReconciler returns a blocking reconciler. logger may be nil.
func NewReconciler[T any](logger Logger) *Reconciler[T] {
	return &Reconciler[T]{eng: engine[T]{log: logger}}
}

// Call runs one full reconciliation: ensure bookkeeping storage, begin a
// transaction, locate the common prefix, roll back and apply the remainders,
// commit, and clear the working state for reuse. Any error between begin and
// commit triggers exactly one Rollback on the adapter and is returned to the
// caller unwrapped.
func (r *Reconciler[T]) Call(adapter Adapter[T], defined Iterator[T]) error {
	return r.eng.call(context.Background(), blockingShim[T]{adapter}, defined)
}

// Initialize binds the adapter and defined sequence and positions both
// cursors on their first element. Precondition for every step method below.
func (r *Reconciler[T]) Initialize(adapter Adapter[T], defined Iterator[T]) error {
	return r.eng.init(context.Background(), blockingShim[T]{adapter}, defined)
}

// FindLastCommonMigration walks both cursors past their shared prefix and
// returns the last migration present on both sides, if any.
func (r *Reconciler[T]) FindLastCommonMigration() (Migration[T], bool, error) {
	return r.eng.findLastCommon()
}

// RollbackRemainingApplied rolls back every migration still on the applied
// cursor, newest first, then removes their records in one batch.
func (r *Reconciler[T]) RollbackRemainingApplied() error {
	return r.eng.rollbackRemaining(context.Background())
}

// ApplyRemainingDefined applies every migration still on the defined cursor,
// oldest first, then stores the stamped batch in one call.
func (r *Reconciler[T]) ApplyRemainingDefined() error {
	return r.eng.applyRemaining(context.Background())
}

// Reset discards all working state, making the instance reusable.
func (r *Reconciler[T]) Reset() { r.eng.reset() }

// Migrate reconciles the database behind adapter with the given defined
// migrations using a fresh blocking Reconciler.
func Migrate[T any](adapter Adapter[T], defined []Migration[T]) error {
	return NewReconciler[T](nil).Call(adapter, FromSlice(defined))
}
