package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrOverlap is returned when a write would leave two scheduled meetings
	// overlapping in the same room.
	ErrOverlap = errors.New("persistence: meeting overlaps a scheduled booking")
	// ErrConstraintViolation is returned when a record fails a CHECK constraint
	// or a required field is missing.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a record references a missing row.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrStatusChanged is returned by compare-and-set status updates when the
	// stored status no longer matches the expected one.
	ErrStatusChanged = errors.New("persistence: status changed concurrently")
)
