package repositories

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrPartitionMissing is returned when an insert lands outside every
	// existing partition of the attendance log. The event must go to the
	// dead-letter table, not be dropped.
	ErrPartitionMissing = errors.New("no partition covers the event timestamp")
)
