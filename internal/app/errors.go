package service

import "errors"

// Sentinel kinds for service command errors.
var (
	// ErrNotStarted is returned by commands that need the submission pipeline before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrNoPrompt is returned when no finished round is waiting for a score submission.
	ErrNoPrompt = errors.New("no score submission pending")
	// ErrSubmissionInFlight is returned while a submission for the same round is being stored.
	ErrSubmissionInFlight = errors.New("score submission already in progress")
)
