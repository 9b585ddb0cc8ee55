package entities

import "errors"

// Domain errors
var (
	// Meeting errors
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrSummaryNotFound = errors.New("meeting summary not found")

	// Pipeline errors
	ErrUnknownStepKind    = errors.New("unknown step kind")
	ErrPipelineBusy       = errors.New("pipeline already running for meeting")
	ErrTransitionConflict = errors.New("step status changed concurrently")
	ErrInvalidTransition  = errors.New("illegal step transition")
	ErrStepRunning        = errors.New("a step is currently running")
	ErrStepsMissing       = errors.New("processing steps missing for meeting")
	ErrStepNotReady       = errors.New("earlier step has not completed")

	// Analysis payload errors
	ErrPortionMissing   = errors.New("analysis portion missing")
	ErrPortionMalformed = errors.New("analysis portion malformed")

	// Task errors
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidPriority   = errors.New("invalid task priority")

	// Generic errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
)
