package reconcile

import (
	"context"
	"errors"
	"testing"
)

func TestAsyncMatchesBlockingTrace(t *testing.T) {
	applied := []Migration[string]{mig(1, "a"), mig(2, "b"), mig(3, "c")}
	defined := []Migration[string]{mig(1, "a"), mig(2, "b"), mig(4, "d")}

	blocking := newMemAdapter(applied...)
	if err := Migrate(blocking, defined); err != nil {
		t.Fatalf("blocking run: %v", err)
	}

	async := newMemAdapter(applied...)
	if err := MigrateContext(context.Background(), ctxMemAdapter{async}, defined); err != nil {
		t.Fatalf("async run: %v", err)
	}

	if len(blocking.ops) != len(async.ops) {
		t.Fatalf("traces differ in length: %v vs %v", blocking.ops, async.ops)
	}
	for i := range blocking.ops {
		if blocking.ops[i] != async.ops[i] {
			t.Fatalf("traces diverge at %d: %v vs %v", i, blocking.ops, async.ops)
		}
	}
	if !sameIDs(appliedIDs(async), 1, 2, 4) {
		t.Fatalf("async applied: %v", appliedIDs(async))
	}
}

func TestAsyncRejectsReentrantCall(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter(mig(1, "a"))
	r := NewAsyncReconciler[string](nil)

	if err := r.Initialize(ctx, ctxMemAdapter{a}, FromSlice([]Migration[string]{mig(1, "a")})); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before := len(a.ops)

	if err := r.Call(ctx, ctxMemAdapter{a}, FromSlice[string](nil)); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := r.Initialize(ctx, ctxMemAdapter{a}, FromSlice[string](nil)); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from initialize, got %v", err)
	}
	if len(a.ops) != before {
		t.Fatalf("rejected call still touched the adapter: %v", a.ops[before:])
	}
}

func TestAsyncFailurePoisonsUntilReset(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("deadlock found")
	a := newMemAdapter()
	a.failExec = map[string]error{"a.up": boom}
	defined := []Migration[string]{mig(1, "a")}
	r := NewAsyncReconciler[string](nil)

	if err := r.Call(ctx, ctxMemAdapter{a}, FromSlice(defined)); err != boom {
		t.Fatalf("expected the adapter error, got %v", err)
	}
	// The failed run leaves the instance bound.
	if err := r.Call(ctx, ctxMemAdapter{a}, FromSlice(defined)); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy after failure, got %v", err)
	}

	r.Reset()
	a.failExec = nil
	if err := r.Call(ctx, ctxMemAdapter{a}, FromSlice(defined)); err != nil {
		t.Fatalf("call after reset: %v", err)
	}
	if !sameIDs(appliedIDs(a), 1) {
		t.Fatalf("applied after recovery: %v", appliedIDs(a))
	}
}

func TestAsyncSuccessfulRunIsReusable(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	r := NewAsyncReconciler[string](nil)
	defined := []Migration[string]{mig(1, "a")}

	if err := r.Call(ctx, ctxMemAdapter{a}, FromSlice(defined)); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := r.Call(ctx, ctxMemAdapter{a}, FromSlice(defined)); err != nil {
		t.Fatalf("second call on same instance: %v", err)
	}
}

func TestAsyncStepMethods(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter(mig(1, "a"), mig(3, "c"))
	r := NewAsyncReconciler[string](nil)

	if err := r.Initialize(ctx, ctxMemAdapter{a}, FromSlice([]Migration[string]{mig(1, "a"), mig(2, "b")})); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	last, found, err := r.FindLastCommonMigration()
	if err != nil {
		t.Fatalf("find common: %v", err)
	}
	if !found || last.ID != 1 {
		t.Fatalf("expected last common id 1, got %d found=%v", last.ID, found)
	}
	if err := r.RollbackRemainingApplied(ctx); err != nil {
		t.Fatalf("rollback step: %v", err)
	}
	if err := r.ApplyRemainingDefined(ctx); err != nil {
		t.Fatalf("apply step: %v", err)
	}
	if !sameIDs(appliedIDs(a), 1, 2) {
		t.Fatalf("applied after steps: %v", appliedIDs(a))
	}
	r.Reset()
}
