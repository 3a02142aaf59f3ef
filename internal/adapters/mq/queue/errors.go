package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrStopped = errors.New("submission queue stopped")
	ErrFull    = errors.New("submission queue full")
)
