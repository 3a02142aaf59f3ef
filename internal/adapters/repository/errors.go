package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrClosed            = errors.New("store closed")
	ErrUnknownDriver     = errors.New("unknown store driver")
)
