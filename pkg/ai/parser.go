package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// analysisPayload is the unified response of the analysis prompt
type analysisPayload struct {
	Summary      string          `json:"summary"`
	KeyDecisions []string        `json:"key_decisions"`
	ActionItems  []string        `json:"action_items"`
	Timeline     json.RawMessage `json:"timeline"`
	Tasks        json.RawMessage `json:"tasks"`
}

type timelineItem struct {
	Timestamp        string   `json:"timestamp"`
	TimestampMinutes *float64 `json:"timestamp_minutes"`
	EventType        string   `json:"event_type"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Participants     []string `json:"participants"`
}

type taskItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
}

// ParseAnalysis parses the model response of the unified analysis call.
// The timeline and task portions are kept raw; each extraction step validates its own.
func ParseAnalysis(content string) (*entities.AnalysisResult, error) {
	var payload analysisPayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return nil, entities.PermanentFailure(entities.ReasonMalformedOutput,
			fmt.Errorf("failed to parse analysis response: %w", err))
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, entities.PermanentFailure(entities.ReasonMalformedOutput,
			fmt.Errorf("missing summary in analysis response"))
	}

	result := &entities.AnalysisResult{
		Summary:      strings.TrimSpace(payload.Summary),
		KeyDecisions: nonEmpty(payload.KeyDecisions),
		ActionItems:  nonEmpty(payload.ActionItems),
		Timeline:     payload.Timeline,
		Tasks:        payload.Tasks,
	}
	return result, nil
}

// ParseTimeline converts a timeline portion into entries. raw may be the bare
// array or an object wrapping it under "timeline".
func ParseTimeline(meetingID uuid.UUID, raw json.RawMessage) ([]*entities.TimelineEntry, error) {
	raw, err := unwrapPortion(raw, "timeline")
	if err != nil {
		return nil, err
	}

	var items []timelineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, entities.PermanentFailure(entities.ReasonMalformedOutput,
			fmt.Errorf("%w: timeline: %v", entities.ErrPortionMalformed, err))
	}

	entries := make([]*entities.TimelineEntry, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		content := strings.TrimSpace(item.Content)
		if title == "" && content == "" {
			continue
		}
		if title == "" {
			title = truncate(content, 80)
		}

		participants := nonEmpty(item.Participants)
		if participants == nil {
			participants = []string{}
		}

		entries = append(entries, &entities.TimelineEntry{
			ID:            uuid.New(),
			MeetingID:     meetingID,
			OffsetSeconds: offsetSeconds(item),
			EventType:     entities.NormalizeEventType(strings.ToLower(strings.TrimSpace(item.EventType))),
			Title:         truncate(title, 255),
			Content:       content,
			Participants:  participants,
		})
	}
	return entries, nil
}

// ParseTasks converts a task portion into tasks. raw may be the bare array or
// an object wrapping it under "tasks".
func ParseTasks(meetingID uuid.UUID, raw json.RawMessage) ([]*entities.Task, error) {
	raw, err := unwrapPortion(raw, "tasks")
	if err != nil {
		return nil, err
	}

	var items []taskItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, entities.PermanentFailure(entities.ReasonMalformedOutput,
			fmt.Errorf("%w: tasks: %v", entities.ErrPortionMalformed, err))
	}

	tasks := make([]*entities.Task, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		description := strings.TrimSpace(item.Description)
		if title == "" {
			title = truncate(description, 80)
		}
		if title == "" {
			continue
		}

		assignee := strings.TrimSpace(item.AssignedTo)
		if assignee == "" {
			assignee = entities.UnassignedTask
		}

		priority, err := entities.ParseTaskPriority(strings.ToLower(strings.TrimSpace(item.Priority)))
		if err != nil {
			priority = entities.TaskPriorityMedium
		}

		tasks = append(tasks, &entities.Task{
			ID:          uuid.New(),
			MeetingID:   meetingID,
			Title:       truncate(title, 255),
			Description: description,
			Assignee:    assignee,
			Deadline:    parseDeadline(item.Deadline),
			Priority:    priority,
			Status:      entities.TaskStatusPending,
		})
	}
	return tasks, nil
}

// unwrapPortion returns the array held by raw, looking inside {"<key>": [...]} when needed
func unwrapPortion(raw json.RawMessage, key string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, entities.PermanentFailure(entities.ReasonMissingPortion,
			fmt.Errorf("%w: %s", entities.ErrPortionMissing, key))
	}
	if trimmed[0] != '{' {
		return trimmed, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, entities.PermanentFailure(entities.ReasonMalformedOutput,
			fmt.Errorf("%w: %s: %v", entities.ErrPortionMalformed, key, err))
	}
	inner := bytes.TrimSpace(wrapper[key])
	if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
		return nil, entities.PermanentFailure(entities.ReasonMissingPortion,
			fmt.Errorf("%w: %s", entities.ErrPortionMissing, key))
	}
	return inner, nil
}

func offsetSeconds(item timelineItem) float64 {
	if item.TimestampMinutes != nil && *item.TimestampMinutes >= 0 {
		return *item.TimestampMinutes * 60
	}
	return parseClock(item.Timestamp)
}

// parseClock reads "MM:SS" or "HH:MM:SS"; anything else is 0
func parseClock(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0.0
	for _, p := range parts {
		n, err := strconv.ParseFloat(p, 64)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

var deadlineLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "02/01/2006"}

// parseDeadline returns nil when the model gave nothing usable
func parseDeadline(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// extractJSON extracts JSON content from markdown code blocks or surrounding prose
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start != -1 && end > start {
			content = content[start : end+1]
		}
	}
	return content
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
