package reconcile

import "time"

// Migration is one schema change. The action type T is opaque to the
// reconciler; for SQL backends it is typically the statement text, but any
// payload the adapter knows how to execute works.
//
// ID orders migrations and is the only field used for identity: two
// migrations are the same migration iff their IDs are equal. A monotonic
// timestamp (20250101000000) or a plain sequence number both work.
type Migration[T any] struct {
	ID        int64
	Name      string // display only, never compared
	Up        T
	Down      T
	AppliedAt time.Time // zero until the reconciler stamps it
}

// Less reports whether m orders strictly before other.
func (m Migration[T]) Less(other Migration[T]) bool { return m.ID < other.ID }

// Equal reports whether m and other are the same migration.
func (m Migration[T]) Equal(other Migration[T]) bool { return m.ID == other.ID }

// withAppliedAt returns a copy stamped with the given time. ID, Name and the
// actions are untouched.
func (m Migration[T]) withAppliedAt(at time.Time) Migration[T] {
	m.AppliedAt = at
	return m
}
