package reconcile

import "errors"

var (
	// ErrOutOfOrder is wrapped by errors reported when a migration sequence
	// is not strictly ascending by ID. It is detected during traversal,
	// before the offending element influences any storage call.
	ErrOutOfOrder = errors.New("migration order violation")

	// ErrBusy is returned by AsyncReconciler when Call or Initialize is
	// invoked while the instance is still bound to an adapter, either
	// because a reconciliation is in flight or because a failed one was
	// never Reset.
	ErrBusy = errors.New("reconciler already bound to an adapter")
)
