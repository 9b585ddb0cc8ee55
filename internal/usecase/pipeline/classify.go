package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/pkg/jobcontext"
)

// classify maps any stage error onto the transient/permanent taxonomy.
// Errors nobody recognises are permanent so a broken adapter cannot loop.
func classify(err error) *entities.StageFailure {
	if f, ok := entities.AsStageFailure(err); ok {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.TransientFailure(entities.ReasonTimeout, err)
	}
	if jobcontext.IsRetryableError(err) {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
			return entities.TransientFailure(entities.ReasonRateLimited, err)
		}
		return entities.TransientFailure(entities.ReasonUnavailable, err)
	}
	if jobcontext.IsNonRetryableError(err) {
		return entities.PermanentFailure(entities.ReasonInvalidInput, err)
	}
	return entities.PermanentFailure(entities.ReasonUnknown, err)
}
