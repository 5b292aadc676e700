package errors

import "errors"

var (
	ErrNotFound = errors.New("daily availability not found")

	// ErrSlotTaken is returned when a reserve hits a slot already present
	// in the booked set.
	ErrSlotTaken = errors.New("slot already booked")
)
