package reconcile

import "fmt"

// cursor walks an Iterator with one element of lookahead. cur is valid only
// while ok is true. prev remembers the last element handed out and exists
// solely to enforce strict ascent on the next advance.
type cursor[T any] struct {
	src     Iterator[T]
	label   string // "defined" or "applied", for error text
	cur     Migration[T]
	ok      bool
	prev    Migration[T]
	hasPrev bool
}

func newCursor[T any](label string, src Iterator[T]) cursor[T] {
	return cursor[T]{src: src, label: label}
}

// advance moves the cursor to the next element, validating that it orders
// strictly after the one before it. On an ordering violation the cursor does
// not move and no further element is consumed.
func (c *cursor[T]) advance() error {
	next, ok, err := c.src.Next()
	if err != nil {
		return err
	}
	if ok && c.ok && !c.cur.Less(next) {
		return fmt.Errorf("%w: %s sequence has %d after %d", ErrOutOfOrder, c.label, next.ID, c.cur.ID)
	}
	if c.ok {
		c.prev, c.hasPrev = c.cur, true
	}
	c.cur, c.ok = next, ok
	return nil
}

func (c *cursor[T]) clear() {
	*c = cursor[T]{}
}
