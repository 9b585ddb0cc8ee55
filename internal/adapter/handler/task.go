package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/errors"
	"github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/common"
	taskDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/task"
	"github.com/johnquangdev/meeting-pipeline/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	taskUsecase "github.com/johnquangdev/meeting-pipeline/internal/usecase/task"
)

// Task handles edits to extracted tasks
type Task struct {
	tasks  taskUsecase.Service
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks taskUsecase.Service, logger *zap.Logger) *Task {
	return &Task{tasks: tasks, logger: logger}
}

// List handles GET /tasks
// @Summary      List tasks
// @Description  Lists tasks extracted from the caller's meetings
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "pending, in_progress or completed"
// @Param        priority    query     string  false  "high, medium or low"
// @Param        meeting_id  query     string  false  "Meeting ID (UUID)"
// @Param        page        query     int     false  "Page number"     default(1)
// @Param        page_size   query     int     false  "Items per page"  default(20)
// @Success      200         {object}  common.ListResponse
// @Failure      400         {object}  map[string]interface{}  "Invalid filters"
// @Router       /tasks [get]
func (h *Task) List(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req taskDTO.ListTasksRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation(err))
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	filters := repositories.TaskFilters{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.Status != "" {
		status := entities.TaskStatus(req.Status)
		filters.Status = &status
	}
	if req.Priority != "" {
		priority := entities.TaskPriority(req.Priority)
		filters.Priority = &priority
	}
	if req.MeetingID != "" {
		meetingID := uuid.MustParse(req.MeetingID)
		filters.MeetingID = &meetingID
	}

	tasks, total, err := h.tasks.List(c.Request().Context(), userID, filters)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, common.ListResponse{
		Data:       presenter.ToTaskListResponse(tasks),
		Pagination: common.NewPagination(page, pageSize, total),
	})
}

// Get handles GET /tasks/:id
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID (UUID)"
// @Success      200  {object}  task.TaskResponse
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /tasks/{id} [get]
func (h *Task) Get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	taskID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	t, err := h.tasks.Get(c.Request().Context(), userID, taskID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTaskResponse(t))
}

// Update handles PUT /tasks/:id
// @Summary      Edit a task
// @Description  Edits title, description, assignee, deadline (YYYY-MM-DD, empty clears) or priority
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Task ID (UUID)"
// @Param        request  body      task.UpdateTaskRequest  true  "Fields to change"
// @Success      200      {object}  task.TaskResponse
// @Failure      400      {object}  map[string]interface{}  "Invalid fields"
// @Failure      404      {object}  map[string]interface{}  "Task not found"
// @Router       /tasks/{id} [put]
func (h *Task) Update(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	taskID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req taskDTO.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation(err))
	}

	t, err := h.tasks.Update(c.Request().Context(), userID, taskID, taskUsecase.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Assignee:    req.Assignee,
		Deadline:    req.Deadline,
		Priority:    req.Priority,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTaskResponse(t))
}

// UpdateStatus handles PUT /tasks/:id/status
// @Summary      Change task status
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Task ID (UUID)"
// @Param        request  body      task.UpdateTaskStatusRequest  true  "New status"
// @Success      200      {object}  task.TaskResponse
// @Failure      400      {object}  map[string]interface{}  "Invalid status"
// @Failure      404      {object}  map[string]interface{}  "Task not found"
// @Router       /tasks/{id}/status [put]
func (h *Task) UpdateStatus(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	taskID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	var req taskDTO.UpdateTaskStatusRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrTaskInvalidState(req.Status))
	}

	t, err := h.tasks.UpdateStatus(c.Request().Context(), userID, taskID, req.Status)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTaskResponse(t))
}

// Delete handles DELETE /tasks/:id
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID (UUID)"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /tasks/{id} [delete]
func (h *Task) Delete(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	taskID, err := pathID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	if err := h.tasks.Delete(c.Request().Context(), userID, taskID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"task_id": taskID, "deleted": true})
}
