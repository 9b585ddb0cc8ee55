package presenter

import (
	taskDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/task"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// ToTaskResponse converts a Task entity to TaskResponse DTO
func ToTaskResponse(t *entities.Task) *taskDTO.TaskResponse {
	resp := &taskDTO.TaskResponse{
		ID:              t.ID,
		MeetingID:       t.MeetingID,
		Title:           t.Title,
		Description:     t.Description,
		Assignee:        t.Assignee,
		Priority:        string(t.Priority),
		Status:          string(t.Status),
		CalendarEventID: t.CalendarEventID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.Deadline != nil {
		d := t.Deadline.Format("2006-01-02")
		resp.Deadline = &d
	}
	return resp
}

// ToTaskListResponse converts a list of tasks
func ToTaskListResponse(tasks []*entities.Task) []*taskDTO.TaskResponse {
	out := make([]*taskDTO.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTaskResponse(t))
	}
	return out
}
