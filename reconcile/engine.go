package reconcile

import (
	"context"
	"time"
)

// engine holds the working state of one reconciliation and implements the
// algorithm once, against the suspension-flavored adapter shape. Reconciler
// and AsyncReconciler are thin instantiations over it; the blocking flavor
// reaches it through blockingShim.
//
// The state lives only for the duration of one Call. After a successful run
// it is cleared so the owning reconciler can be reused. After a failed run it
// is deliberately left bound until Reset (see the poisoning contract on
// AsyncReconciler).
type engine[T any] struct {
	adapter ContextAdapter[T] // nil while idle
	defined cursor[T]
	applied cursor[T]
	log     Logger
}

func (e *engine[T]) logger() Logger {
	if e.log == nil {
		return nopLogger{}
	}
	return e.log
}

func (e *engine[T]) bound() bool { return e.adapter != nil }

// init binds the adapter and the defined sequence, lazily provisions the
// bookkeeping storage, opens the applied history, and positions both cursors
// on their first element. It runs before the transaction is opened.
func (e *engine[T]) init(ctx context.Context, adapter ContextAdapter[T], defined Iterator[T]) error {
	e.adapter = adapter

	ok, err := adapter.HasMigrationsTable(ctx)
	if err != nil {
		return err
	}
	if !ok {
		e.logger().Info("migrations table missing, creating", nil)
		if err := adapter.CreateMigrationsTable(ctx); err != nil {
			return err
		}
	}

	appliedSrc, err := adapter.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	e.defined = newCursor("defined", defined)
	e.applied = newCursor("applied", appliedSrc)
	if err := e.defined.advance(); err != nil {
		return err
	}
	return e.applied.advance()
}

// findLastCommon advances both cursors in lock-step while they agree,
// returning the last migration seen on both sides. The return value is
// diagnostic only; the real work of this step is leaving both cursors parked
// on the first element past the common prefix.
func (e *engine[T]) findLastCommon() (Migration[T], bool, error) {
	var last Migration[T]
	var found bool
	for e.defined.ok && e.applied.ok && e.defined.cur.Equal(e.applied.cur) {
		last, found = e.applied.cur, true
		if err := e.defined.advance(); err != nil {
			return last, found, err
		}
		if err := e.applied.advance(); err != nil {
			return last, found, err
		}
	}
	return last, found, nil
}

// reconcile drains what is left past the common prefix. Anything still
// recorded as applied is rolled back before a single new migration runs, so
// the database always passes through the common-prefix state and batches
// never interleave.
func (e *engine[T]) reconcile(ctx context.Context) error {
	for {
		switch {
		case e.applied.ok:
			if err := e.rollbackRemaining(ctx); err != nil {
				return err
			}
		case e.defined.ok:
			if err := e.applyRemaining(ctx); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// rollbackRemaining drains the applied cursor into one batch, executes each
// Down action newest-first, then removes the whole batch's bookkeeping
// records in one call.
func (e *engine[T]) rollbackRemaining(ctx context.Context) error {
	var batch []Migration[T]
	for e.applied.ok {
		batch = append(batch, e.applied.cur)
		if err := e.applied.advance(); err != nil {
			return err
		}
	}
	if len(batch) == 0 {
		e.logger().Info("nothing to roll back", nil)
		return nil
	}
	for i := len(batch) - 1; i >= 0; i-- {
		m := batch[i]
		e.logger().Info("rolling back", map[string]any{"id": m.ID, "name": m.Name})
		if err := e.adapter.Exec(ctx, m.Down); err != nil {
			return err
		}
	}
	return e.adapter.Remove(ctx, batch)
}

// applyRemaining drains the defined cursor into one batch stamped with a
// single shared timestamp, executes each Up action oldest-first, then stores
// the whole batch in one call.
func (e *engine[T]) applyRemaining(ctx context.Context) error {
	now := time.Now().UTC()
	var batch []Migration[T]
	for e.defined.ok {
		batch = append(batch, e.defined.cur.withAppliedAt(now))
		if err := e.defined.advance(); err != nil {
			return err
		}
	}
	if len(batch) == 0 {
		e.logger().Info("nothing to apply", nil)
		return nil
	}
	for _, m := range batch {
		e.logger().Info("applying", map[string]any{"id": m.ID, "name": m.Name})
		if err := e.adapter.Exec(ctx, m.Up); err != nil {
			return err
		}
	}
	return e.adapter.Store(ctx, batch)
}

// call runs one full reconciliation: init, then the transactional phase, then
// reset. Any error inside the transactional phase triggers exactly one
// Rollback and comes back unwrapped. On failure the engine stays bound.
func (e *engine[T]) call(ctx context.Context, adapter ContextAdapter[T], defined Iterator[T]) error {
	if err := e.init(ctx, adapter, defined); err != nil {
		return err
	}
	if err := adapter.Begin(ctx); err != nil {
		return err
	}
	if err := e.run(ctx); err != nil {
		if rbErr := adapter.Rollback(ctx); rbErr != nil {
			e.logger().Error("transaction rollback failed", map[string]any{"error": rbErr.Error()})
		}
		return err
	}
	if err := adapter.Commit(ctx); err != nil {
		return err
	}
	e.reset()
	return nil
}

func (e *engine[T]) run(ctx context.Context) error {
	last, found, err := e.findLastCommon()
	if err != nil {
		return err
	}
	if found {
		e.logger().Info("last common migration", map[string]any{"id": last.ID, "name": last.Name})
	}
	return e.reconcile(ctx)
}

// reset clears every piece of working state, returning the engine to its
// initial condition.
func (e *engine[T]) reset() {
	e.adapter = nil
	e.defined.clear()
	e.applied.clear()
}
