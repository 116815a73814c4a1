package reconcile

import "context"

// AsyncReconciler runs the same algorithm as Reconciler against a
// ContextAdapter, whose calls may park the goroutine until storage responds.
// There is still exactly one logical thread of control per reconciliation:
// the reconciler never issues overlapping adapter calls.
//
// Because a run can be suspended mid-flight, the instance guards against
// re-entry: Call and Initialize fail with ErrBusy, before touching any state,
// while an adapter is bound. A failed run leaves the adapter bound on
// purpose, so reusing the instance reports ErrBusy until Reset is called.
type AsyncReconciler[T any] struct {
	eng engine[T]
}

// NewAsyncReconciler returns a suspension-flavored reconciler. logger may be
// nil.
func NewAsyncReconciler[T any](logger Logger) *AsyncReconciler[T] {
	return &AsyncReconciler[T]{eng: engine[T]{log: logger}}
}

// Call runs one full reconciliation. Same contract as Reconciler.Call, plus
// the ErrBusy guard described on the type.
func (r *AsyncReconciler[T]) Call(ctx context.Context, adapter ContextAdapter[T], defined Iterator[T]) error {
	if r.eng.bound() {
		return ErrBusy
	}
	return r.eng.call(ctx, adapter, defined)
}

// Initialize binds the adapter and defined sequence. Fails with ErrBusy if an
// adapter is already bound.
func (r *AsyncReconciler[T]) Initialize(ctx context.Context, adapter ContextAdapter[T], defined Iterator[T]) error {
	if r.eng.bound() {
		return ErrBusy
	}
	return r.eng.init(ctx, adapter, defined)
}

// FindLastCommonMigration walks both cursors past their shared prefix and
// returns the last migration present on both sides, if any.
func (r *AsyncReconciler[T]) FindLastCommonMigration() (Migration[T], bool, error) {
	return r.eng.findLastCommon()
}

// RollbackRemainingApplied rolls back every migration still on the applied
// cursor, newest first, then removes their records in one batch.
func (r *AsyncReconciler[T]) RollbackRemainingApplied(ctx context.Context) error {
	return r.eng.rollbackRemaining(ctx)
}

// ApplyRemainingDefined applies every migration still on the defined cursor,
// oldest first, then stores the stamped batch in one call.
func (r *AsyncReconciler[T]) ApplyRemainingDefined(ctx context.Context) error {
	return r.eng.applyRemaining(ctx)
}

// Reset discards all working state, clearing a poisoned instance for reuse.
func (r *AsyncReconciler[T]) Reset() { r.eng.reset() }

// MigrateContext reconciles the database behind adapter with the given
// defined migrations using a fresh AsyncReconciler.
func MigrateContext[T any](ctx context.Context, adapter ContextAdapter[T], defined []Migration[T]) error {
	return NewAsyncReconciler[T](nil).Call(ctx, adapter, FromSlice(defined))
}
