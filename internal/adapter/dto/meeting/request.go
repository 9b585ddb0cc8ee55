package meeting

// ListMeetingsRequest represents query parameters for listing meetings
type ListMeetingsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=processing completed failed"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ReprocessRequest represents the optional body of a reprocess call
type ReprocessRequest struct {
	FromStep string `json:"from_step,omitempty" validate:"omitempty,stepkind"`
}
