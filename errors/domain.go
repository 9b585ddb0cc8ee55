package errors

import (
	stdErrors "errors"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/meeting-pipeline/internal/usecase/errors"
)

// FromDomain maps domain and use case errors onto the HTTP error envelope.
// resourceID is attached as a detail where the error names a resource.
func FromDomain(err error, resourceID string) AppError {
	var appErr AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stdErrors.Is(err, entities.ErrMeetingNotFound):
		return ErrMeetingNotFound(resourceID)
	case stdErrors.Is(err, entities.ErrPipelineBusy):
		return ErrPipelineBusy(resourceID)
	case stdErrors.Is(err, entities.ErrTransitionConflict),
		stdErrors.Is(err, entities.ErrInvalidTransition),
		stdErrors.Is(err, entities.ErrStepRunning):
		return ErrStepConflict(resourceID, err)
	case stdErrors.Is(err, entities.ErrStepNotReady):
		return ErrStepNotReady(resourceID, err)
	case stdErrors.Is(err, entities.ErrUnknownStepKind):
		return ErrInvalidStep(resourceID)
	case stdErrors.Is(err, entities.ErrTaskNotFound):
		return ErrTaskNotFound(resourceID)
	case stdErrors.Is(err, entities.ErrInvalidTaskStatus):
		return ErrTaskInvalidState(resourceID)
	case stdErrors.Is(err, entities.ErrInvalidPriority),
		stdErrors.Is(err, usecaseErrors.ErrInvalidDeadline),
		stdErrors.Is(err, usecaseErrors.ErrInvalidInput),
		stdErrors.Is(err, usecaseErrors.ErrEmptyAudio):
		return ErrInvalidArgument(err.Error())
	case stdErrors.Is(err, usecaseErrors.ErrUnsupportedAudio):
		return ErrUnsupportedAudio(resourceID)
	case stdErrors.Is(err, usecaseErrors.ErrAudioTooLarge):
		return ErrAudioTooLarge()
	case stdErrors.Is(err, usecaseErrors.ErrStorageFailed):
		return ErrStorageFailed("upload", err)
	case stdErrors.Is(err, usecaseErrors.ErrQueueFull):
		return ErrQueueFull()
	case stdErrors.Is(err, usecaseErrors.ErrSummaryNotReady):
		return ErrSummaryNotReady(resourceID)
	case stdErrors.Is(err, entities.ErrUnauthorized), stdErrors.Is(err, usecaseErrors.ErrUnauthorized):
		return ErrUnauthenticated()
	case stdErrors.Is(err, entities.ErrForbidden), stdErrors.Is(err, usecaseErrors.ErrForbidden):
		return ErrForbidden("Access denied")
	}
	return ErrInternal(err)
}
