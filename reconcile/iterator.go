package reconcile

// Iterator is a lazy, single-pass source of migrations in strictly ascending
// ID order. Next returns the next migration and true, or a zero value and
// false once the sequence is exhausted. Implementations backed by external
// storage may also fail.
//
// The reconciler does not trust the ordering promise: it re-checks ascent on
// every element it pulls.
type Iterator[T any] interface {
	Next() (Migration[T], bool, error)
}

type sliceIterator[T any] struct {
	rest []Migration[T]
}

// FromSlice wraps a code-defined migration list in an Iterator. The slice is
// read left to right and is not copied.
func FromSlice[T any](migrations []Migration[T]) Iterator[T] {
	return &sliceIterator[T]{rest: migrations}
}

func (it *sliceIterator[T]) Next() (Migration[T], bool, error) {
	if len(it.rest) == 0 {
		var zero Migration[T]
		return zero, false, nil
	}
	m := it.rest[0]
	it.rest = it.rest[1:]
	return m, true, nil
}
