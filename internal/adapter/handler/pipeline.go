package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/errors"
	meetingDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
)

// StatusProjector reads the committed step ledger of a meeting
type StatusProjector interface {
	Status(ctx context.Context, meetingID uuid.UUID) (*pipeline.StatusSnapshot, error)
}

// Reprocessor resets a suffix of the steps and queues a run
type Reprocessor interface {
	Reprocess(ctx context.Context, meetingID uuid.UUID, from *entities.StepKind) (entities.StepKind, error)
}

// Pipeline exposes processing status and reprocessing
type Pipeline struct {
	meetings  meeting.Service
	projector StatusProjector
	reprocess Reprocessor
	logger    *zap.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(meetings meeting.Service, projector StatusProjector, reprocess Reprocessor, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		meetings:  meetings,
		projector: projector,
		reprocess: reprocess,
		logger:    logger,
	}
}

// Status handles GET /meetings/:id/status
// @Summary      Get processing status
// @Description  Returns the overall status and the state of every processing step
// @Tags         Pipeline
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID (UUID)"
// @Success      200  {object}  meeting.StatusResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid meeting ID"
// @Failure      404  {object}  map[string]interface{}  "Meeting not found"
// @Router       /meetings/{id}/status [get]
func (h *Pipeline) Status(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	ctx := c.Request().Context()
	if _, err := h.meetings.Authorize(ctx, userID, meetingID); err != nil {
		return HandleError(h.logger, c, err)
	}

	snap, err := h.projector.Status(ctx, meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToStatusResponse(snap))
}

// Reprocess handles POST /meetings/:id/reprocess
// @Summary      Reprocess a meeting
// @Description  Resets the given step and every later step, then queues a run. Without from_step it restarts at the first failed step.
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true   "Meeting ID (UUID)"
// @Param        request  body      meeting.ReprocessRequest  false  "Step to restart from"
// @Success      202      {object}  meeting.ReprocessResponse
// @Failure      400      {object}  map[string]interface{}  "Unknown step"
// @Failure      404      {object}  map[string]interface{}  "Meeting not found"
// @Failure      409      {object}  map[string]interface{}  "Meeting is being processed"
// @Failure      503      {object}  map[string]interface{}  "Processing queue is full"
// @Router       /meetings/{id}/reprocess [post]
func (h *Pipeline) Reprocess(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req meetingDTO.ReprocessRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidStep(req.FromStep))
	}

	ctx := c.Request().Context()
	if _, err := h.meetings.Authorize(ctx, userID, meetingID); err != nil {
		return HandleError(h.logger, c, err)
	}

	var from *entities.StepKind
	if req.FromStep != "" {
		kind := entities.StepKind(req.FromStep)
		from = &kind
	}

	start, err := h.reprocess.Reprocess(ctx, meetingID, from)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if h.logger != nil {
		h.logger.Info("🔄 Reprocess accepted",
			zap.String("meeting_id", meetingID.String()),
			zap.String("step", string(start)),
		)
	}

	return HandleStatus(h.logger, c, http.StatusAccepted, meetingDTO.ReprocessResponse{
		MeetingID: meetingID,
		FromStep:  string(start),
		StatusURL: statusURL(meetingID),
	})
}
