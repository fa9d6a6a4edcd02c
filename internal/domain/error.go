package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNoSessionLoaded       = errors.New("no creative session loaded")
	ErrSubmissionFailed      = errors.New("job submission failed")
	ErrGenerationFailed      = errors.New("brief generation failed")
	ErrInsufficientSelection = errors.New("merge requires at least two selected clips")
	ErrPromptUpdateRejected  = errors.New("prompt update rejected by backend")
	ErrStateRegression       = errors.New("job state may not move backwards")
	ErrTerminalState         = errors.New("job already reached a terminal state")
)
