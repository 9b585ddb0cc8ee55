package errors

import "errors"

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden access")
	ErrNotFound      = errors.New("resource not found")
	ErrConflict      = errors.New("resource conflict")
	ErrInternalError = errors.New("internal server error")
)

// Ingestion errors
var (
	ErrUnsupportedAudio = errors.New("unsupported audio format")
	ErrAudioTooLarge    = errors.New("audio file too large")
	ErrEmptyAudio       = errors.New("audio file is empty")
	ErrStorageFailed    = errors.New("failed to store audio")
)

// Pipeline scheduling errors
var (
	ErrQueueFull        = errors.New("processing queue is full")
	ErrPoolNotRunning   = errors.New("worker pool not running")
	ErrPoolRunning      = errors.New("worker pool already running")
	ErrSummaryNotReady  = errors.New("summary not available yet")
	ErrCalendarDisabled = errors.New("calendar sync is not configured")
	ErrInvalidDeadline  = errors.New("deadline must be formatted as YYYY-MM-DD")
)
