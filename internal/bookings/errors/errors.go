package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusConflict means a conditional status write matched nothing:
	// the booking's status moved between the caller's read and the write.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)
