package presenter

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	meetingDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
)

// excerptRunes bounds the transcript excerpt on the meeting detail
const excerptRunes = 500

// ToMeetingResponse converts a Meeting entity to MeetingResponse DTO
func ToMeetingResponse(m *entities.Meeting) meetingDTO.MeetingResponse {
	return meetingDTO.MeetingResponse{
		ID:               m.ID,
		Title:            m.Title,
		Status:           string(m.Status),
		OriginalFilename: m.OriginalFilename,
		FileSize:         m.FileSize,
		FileSizeHuman:    humanize.Bytes(uint64(max(m.FileSize, 0))),
		DurationSeconds:  m.DurationSeconds,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ToMeetingListResponse converts a list of meetings
func ToMeetingListResponse(meetings []*entities.Meeting) []meetingDTO.MeetingResponse {
	out := make([]meetingDTO.MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, ToMeetingResponse(m))
	}
	return out
}

// ToMeetingDetailResponse converts a meeting with its artifacts
func ToMeetingDetailResponse(d *meeting.Detail) *meetingDTO.MeetingDetailResponse {
	resp := &meetingDTO.MeetingDetailResponse{MeetingResponse: ToMeetingResponse(d.Meeting)}
	if t := d.Transcript; t != nil {
		resp.Transcript = &meetingDTO.TranscriptResponse{
			Text:            t.Text,
			Excerpt:         excerpt(t.Text, excerptRunes),
			Language:        t.Language,
			DurationSeconds: t.DurationSeconds,
			SpeakerCount:    t.SpeakerCount,
			Confidence:      t.ConfidenceScore,
		}
	}
	if d.Summary != nil {
		resp.Summary = ToSummaryResponse(d.Summary)
	}
	return resp
}

// ToSummaryResponse converts the analysis output
func ToSummaryResponse(s *entities.MeetingSummary) *meetingDTO.SummaryResponse {
	return &meetingDTO.SummaryResponse{
		Summary:      s.Summary,
		KeyDecisions: nonNil(s.KeyDecisions),
		ActionItems:  nonNil(s.ActionItems),
		ModelUsed:    s.ModelUsed,
		CreatedAt:    s.CreatedAt,
	}
}

// ToTimelineResponse converts timeline entries, keeping their order
func ToTimelineResponse(meetingID uuid.UUID, entries []*entities.TimelineEntry) *meetingDTO.TimelineResponse {
	resp := &meetingDTO.TimelineResponse{
		MeetingID: meetingID,
		Entries:   make([]meetingDTO.TimelineEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, meetingDTO.TimelineEntryResponse{
			ID:            e.ID,
			Timestamp:     e.Timestamp(),
			OffsetSeconds: e.OffsetSeconds,
			EventType:     string(e.EventType),
			Title:         e.Title,
			Content:       e.Content,
			Participants:  nonNil(e.Participants),
		})
	}
	return resp
}

// ToStatusResponse converts a pipeline status snapshot
func ToStatusResponse(s *pipeline.StatusSnapshot) *meetingDTO.StatusResponse {
	resp := &meetingDTO.StatusResponse{
		MeetingID:     s.MeetingID,
		Title:         s.Title,
		OverallStatus: string(s.OverallStatus),
		CreatedAt:     s.CreatedAt,
		Steps:         make([]meetingDTO.StepResponse, 0, len(s.Steps)),
	}
	if s.CurrentStep != nil {
		resp.CurrentStep = string(*s.CurrentStep)
	}
	if s.FailedStep != nil {
		resp.FailedStep = string(*s.FailedStep)
	}
	for _, step := range s.Steps {
		resp.Steps = append(resp.Steps, meetingDTO.StepResponse{
			Kind:        string(step.Kind),
			Status:      string(step.Status),
			Progress:    step.Progress,
			Error:       step.Error,
			StartedAt:   step.StartedAt,
			CompletedAt: step.CompletedAt,
		})
	}
	return resp
}

// ToStatsResponse converts the aggregated counters
func ToStatsResponse(s *repositories.MeetingStats) *meetingDTO.StatsResponse {
	resp := &meetingDTO.StatsResponse{
		TotalMeetings:        s.TotalMeetings,
		MeetingsByStatus:     make(map[string]int64, len(s.MeetingsByStatus)),
		TotalTasks:           s.TotalTasks,
		TasksByStatus:        make(map[string]int64, len(s.TasksByStatus)),
		TotalDurationSeconds: s.TotalDurationSeconds,
		TotalDurationHuman:   formatDuration(s.TotalDurationSeconds),
	}
	for k, v := range s.MeetingsByStatus {
		resp.MeetingsByStatus[string(k)] = v
	}
	for k, v := range s.TasksByStatus {
		resp.TasksByStatus[string(k)] = v
	}
	return resp
}

func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	h := int64(d.Hours())
	m := int64(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm %02ds", m, seconds%60)
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
