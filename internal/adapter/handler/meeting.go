package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/errors"
	"github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/common"
	meetingDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/meeting"
)

// Meeting handles meeting ingestion and query requests
type Meeting struct {
	meetings meeting.Service
	logger   *zap.Logger
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetings meeting.Service, logger *zap.Logger) *Meeting {
	return &Meeting{meetings: meetings, logger: logger}
}

func statusURL(meetingID fmt.Stringer) string {
	return "/v1/meetings/" + meetingID.String() + "/status"
}

// Upload handles POST /meetings
// @Summary      Upload a meeting recording
// @Description  Stores the audio and queues the transcription, analysis, timeline and task steps
// @Tags         Meetings
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        audio  formData  file    true   "Audio file (mp3, wav, m4a, mp4, webm)"
// @Param        title  formData  string  false  "Meeting title, defaults to the file name"
// @Success      202    {object}  meeting.UploadResponse
// @Failure      400    {object}  map[string]interface{}  "Missing or unsupported file"
// @Failure      401    {object}  map[string]interface{}  "User not authenticated"
// @Failure      413    {object}  map[string]interface{}  "File too large"
// @Failure      500    {object}  map[string]interface{}  "Storage failure"
// @Router       /meetings [post]
func (h *Meeting) Upload(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("audio file is required"))
	}
	file, err := fh.Open()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	defer file.Close()

	m, err := h.meetings.Ingest(c.Request().Context(), meeting.IngestInput{
		UserID:      userID,
		Title:       c.FormValue("title"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Audio:       file,
	})
	if err != nil {
		return HandleError(h.logger, c, errors.FromDomain(err, filepath.Ext(fh.Filename)))
	}

	return HandleStatus(h.logger, c, http.StatusAccepted, meetingDTO.UploadResponse{
		MeetingID: m.ID,
		Status:    string(m.Status),
		StatusURL: statusURL(m.ID),
	})
}

// List handles GET /meetings
// @Summary      List meetings
// @Description  Lists the caller's meetings, newest first
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "processing, completed or failed"
// @Param        page       query     int     false  "Page number"     default(1)
// @Param        page_size  query     int     false  "Items per page"  default(20)
// @Success      200        {object}  common.ListResponse
// @Failure      400        {object}  map[string]interface{}  "Invalid filters"
// @Failure      401        {object}  map[string]interface{}  "User not authenticated"
// @Router       /meetings [get]
func (h *Meeting) List(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req meetingDTO.ListMeetingsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation(err))
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	filters := repositories.MeetingFilters{
		UserID: userID,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.Status != "" {
		status := entities.MeetingStatus(req.Status)
		filters.Status = &status
	}

	meetings, total, err := h.meetings.List(c.Request().Context(), filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, common.ListResponse{
		Data:       presenter.ToMeetingListResponse(meetings),
		Pagination: common.NewPagination(page, pageSize, total),
	})
}

// Get handles GET /meetings/:id
// @Summary      Get meeting details
// @Description  Returns the meeting with its transcript excerpt and summary when available
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID (UUID)"
// @Success      200  {object}  meeting.MeetingDetailResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid meeting ID"
// @Failure      404  {object}  map[string]interface{}  "Meeting not found"
// @Router       /meetings/{id} [get]
func (h *Meeting) Get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	detail, err := h.meetings.Get(c.Request().Context(), userID, meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToMeetingDetailResponse(detail))
}

// Timeline handles GET /meetings/:id/timeline
// @Summary      Get meeting timeline
// @Description  Returns timeline entries ordered by offset, with MM:SS timestamps
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID (UUID)"
// @Success      200  {object}  meeting.TimelineResponse
// @Failure      404  {object}  map[string]interface{}  "Meeting not found"
// @Router       /meetings/{id}/timeline [get]
func (h *Meeting) Timeline(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	entries, err := h.meetings.Timeline(c.Request().Context(), userID, meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTimelineResponse(meetingID, entries))
}

// Summary handles GET /meetings/:id/summary
// @Summary      Get meeting summary
// @Description  Returns the analysis summary with key decisions and action items
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID (UUID)"
// @Success      200  {object}  meeting.SummaryResponse
// @Failure      404  {object}  map[string]interface{}  "Meeting not found or summary not ready"
// @Router       /meetings/{id}/summary [get]
func (h *Meeting) Summary(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	summary, err := h.meetings.Summary(c.Request().Context(), userID, meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToSummaryResponse(summary))
}

// Delete handles DELETE /meetings/:id
// @Summary      Delete a meeting
// @Description  Removes the meeting, its steps and derived data, and the audio file
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Meeting ID (UUID)"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "Meeting not found"
// @Failure      409  {object}  map[string]interface{}  "Meeting is being processed"
// @Router       /meetings/{id} [delete]
func (h *Meeting) Delete(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	meetingID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.meetings.Delete(c.Request().Context(), userID, meetingID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"meeting_id": meetingID, "deleted": true})
}

// Stats handles GET /meetings/stats
// @Summary      Meeting statistics
// @Description  Counts meetings by status, tasks by status and total audio duration
// @Tags         Meetings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meeting.StatsResponse
// @Failure      401  {object}  map[string]interface{}  "User not authenticated"
// @Router       /meetings/stats [get]
func (h *Meeting) Stats(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	stats, err := h.meetings.Stats(c.Request().Context(), userID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToStatsResponse(stats))
}
