package errors

import "errors"

var (
	ErrNotFound = errors.New("provider not found")

	ErrInvalidID = errors.New("invalid provider ID format")
)
