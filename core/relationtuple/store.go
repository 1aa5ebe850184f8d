package relationtuple

import (
	"context"
)

// Store persists and queries relation tuples. Implementations range from the
// in-memory store used in tests to the GORM-backed repository in sgorm.
//
// Contract: writes are idempotent (re-inserting an existing tuple or
// deleting an absent one is a no-op, not an error) and are visible to
// subsequent reads on the same store instance.
type Store interface {
	// WriteTuple inserts a tuple. Inserting an existing tuple is a no-op.
	WriteTuple(ctx context.Context, tuple Tuple) error

	// WriteTuples inserts multiple tuples atomically.
	WriteTuples(ctx context.Context, tuples []Tuple) error

	// DeleteTuple removes a tuple. Absence is not an error.
	DeleteTuple(ctx context.Context, tuple Tuple) error

	// DeleteTuples removes every tuple matching the filter. An empty
	// filter is rejected with *ValidationError rather than clearing the
	// store.
	DeleteTuples(ctx context.Context, filter Filter) error

	// ReadTuples returns every tuple matching the filter. Result order is
	// unspecified; callers needing determinism sort the result themselves.
	ReadTuples(ctx context.Context, filter Filter) ([]Tuple, error)

	// TupleExists reports whether the exact tuple is present.
	TupleExists(ctx context.Context, tuple Tuple) (bool, error)

	// ReadSubjectTuples returns every tuple whose subject is exactly the
	// given reference. This is the reverse index used for audits and
	// explainability.
	ReadSubjectTuples(ctx context.Context, subject SubjectRef) ([]Tuple, error)
}
