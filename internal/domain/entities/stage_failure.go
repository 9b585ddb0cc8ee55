package entities

import (
	"errors"
	"fmt"
)

// FailureKind decides whether the orchestrator may retry a stage call
type FailureKind string

const (
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
)

// Failure reasons reported by stage adapters
const (
	ReasonTimeout           = "timeout"
	ReasonRateLimited       = "rate_limited"
	ReasonUnavailable       = "unavailable"
	ReasonInvalidInput      = "invalid_input"
	ReasonUnsupportedFormat = "unsupported_format"
	ReasonAuthRejected      = "auth_rejected"
	ReasonMissingPortion    = "missing_portion"
	ReasonMalformedOutput   = "malformed_output"
	ReasonUnknown           = "unknown"
)

// StageFailure is the typed error returned by stage adapters
type StageFailure struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (f *StageFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s failure (%s)", f.Kind, f.Reason)
	}
	return fmt.Sprintf("%s failure (%s): %v", f.Kind, f.Reason, f.Err)
}

func (f *StageFailure) Unwrap() error {
	return f.Err
}

// Transient reports whether the failure may be retried
func (f *StageFailure) Transient() bool {
	return f.Kind == FailureTransient
}

// TransientFailure wraps err as a retryable stage failure
func TransientFailure(reason string, err error) *StageFailure {
	return &StageFailure{Kind: FailureTransient, Reason: reason, Err: err}
}

// PermanentFailure wraps err as a non-retryable stage failure
func PermanentFailure(reason string, err error) *StageFailure {
	return &StageFailure{Kind: FailurePermanent, Reason: reason, Err: err}
}

// AsStageFailure extracts a StageFailure from an error chain
func AsStageFailure(err error) (*StageFailure, bool) {
	var f *StageFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
