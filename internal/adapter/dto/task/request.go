package task

// ListTasksRequest represents query parameters for listing tasks
type ListTasksRequest struct {
	Status    string `query:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority  string `query:"priority" validate:"omitempty,oneof=high medium low"`
	MeetingID string `query:"meeting_id" validate:"omitempty,uuid"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// UpdateTaskRequest edits a task; omitted fields are left unchanged.
// An empty deadline clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Assignee    *string `json:"assignee,omitempty" validate:"omitempty,max=255"`
	Deadline    *string `json:"deadline,omitempty" validate:"omitempty,isodate"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
}

// UpdateTaskStatusRequest sets the user-managed task status
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}
