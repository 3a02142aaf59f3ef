package scores

import "errors"

// Sentinel kinds for score submission errors.
var (
	// ErrValidation marks input rejected before any store call.
	ErrValidation = errors.New("invalid score submission")
	// ErrStore marks a failure of the remote store; the caller may retry.
	ErrStore = errors.New("score store unavailable")
)
