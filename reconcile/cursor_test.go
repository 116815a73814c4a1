package reconcile

import (
	"errors"
	"testing"
)

func TestCursorWalksAscendingSequence(t *testing.T) {
	c := newCursor("defined", FromSlice([]Migration[string]{mig(1, "a"), mig(2, "b")}))
	if err := c.advance(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	if !c.ok || c.cur.ID != 1 {
		t.Fatalf("expected first element 1, got %+v ok=%v", c.cur, c.ok)
	}
	if err := c.advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !c.ok || c.cur.ID != 2 {
		t.Fatalf("expected 2, got %+v", c.cur)
	}
	if !c.hasPrev || c.prev.ID != 1 {
		t.Fatalf("previous memo not kept: %+v", c.prev)
	}
	if err := c.advance(); err != nil {
		t.Fatalf("advance past end: %v", err)
	}
	if c.ok {
		t.Fatal("expected exhaustion")
	}
}

func TestCursorRejectsDuplicates(t *testing.T) {
	c := newCursor("applied", FromSlice([]Migration[string]{mig(2, "b"), mig(2, "b")}))
	if err := c.advance(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	err := c.advance()
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for duplicate id, got %v", err)
	}
	// The cursor must not move past the violation.
	if !c.ok || c.cur.ID != 2 || c.hasPrev {
		t.Fatalf("cursor moved despite violation: %+v", c)
	}
}

func TestCursorRejectsDescent(t *testing.T) {
	c := newCursor("defined", FromSlice([]Migration[string]{mig(5, "e"), mig(3, "c")}))
	if err := c.advance(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	if err := c.advance(); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
}

func TestCursorEmptySequence(t *testing.T) {
	c := newCursor("defined", FromSlice[string](nil))
	if err := c.advance(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	if c.ok {
		t.Fatal("expected empty cursor")
	}
}

type failingIterator struct{ err error }

func (f failingIterator) Next() (Migration[string], bool, error) {
	var zero Migration[string]
	return zero, false, f.err
}

func TestCursorPropagatesSourceError(t *testing.T) {
	boom := errors.New("connection reset")
	c := newCursor("applied", failingIterator{err: boom})
	if err := c.advance(); err != boom {
		t.Fatalf("expected source error unchanged, got %v", err)
	}
}
