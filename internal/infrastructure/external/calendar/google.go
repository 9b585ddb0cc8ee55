package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// GoogleCalendar creates all-day events for task deadlines once a meeting's
// pipeline completes, and follows later task edits. It runs as a completion
// hook and never touches step state.
type GoogleCalendar struct {
	http       *resty.Client
	tasks      repositories.TaskRepository
	calendarID string
	timeZone   string
	logger     *zap.Logger
}

// NewGoogleCalendar authenticates with a stored refresh token
func NewGoogleCalendar(ctx context.Context, cfg config.CalendarConfig, tasks repositories.TaskRepository, logger *zap.Logger) *GoogleCalendar {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/calendar.events"},
	}
	httpClient := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	client := resty.NewWithClient(httpClient).
		SetBaseURL(defaultBaseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return newGoogleCalendar(client, cfg, tasks, logger)
}

func newGoogleCalendar(client *resty.Client, cfg config.CalendarConfig, tasks repositories.TaskRepository, logger *zap.Logger) *GoogleCalendar {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	timeZone := cfg.TimeZone
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &GoogleCalendar{
		http:       client,
		tasks:      tasks,
		calendarID: calendarID,
		timeZone:   timeZone,
		logger:     logger,
	}
}

type eventDate struct {
	Date     string `json:"date"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventRequest struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       eventDate `json:"start"`
	End         eventDate `json:"end"`
}

type eventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// OnPipelineCompleted syncs every task of the meeting that has a deadline and no event yet
func (g *GoogleCalendar) OnPipelineCompleted(ctx context.Context, meetingID uuid.UUID) error {
	tasks, err := g.tasks.ListByMeeting(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	var errs []error
	synced := 0
	for _, task := range tasks {
		if !task.NeedsCalendarSync() {
			continue
		}
		eventID, err := g.createEvent(ctx, task)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		if err := g.tasks.SetCalendarEvent(ctx, task.ID, eventID); err != nil {
			errs = append(errs, fmt.Errorf("task %s: failed to store event id: %w", task.ID, err))
			continue
		}
		synced++
	}

	if synced > 0 && g.logger != nil {
		g.logger.Info("📅 Tasks synced to calendar",
			zap.String("meeting_id", meetingID.String()),
			zap.Int("count", synced),
		)
	}
	return errors.Join(errs...)
}

func (g *GoogleCalendar) createEvent(ctx context.Context, task *entities.Task) (string, error) {
	var out eventResponse
	var apiErr apiError
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(g.eventFor(task)).
		SetResult(&out).
		SetError(&apiErr).
		Post(g.eventsPath())
	if err != nil {
		return "", fmt.Errorf("calendar request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("calendar returned status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if out.ID == "" {
		return "", fmt.Errorf("calendar returned no event id")
	}
	return out.ID, nil
}

// UpdateTaskEvent rewrites the event of a synced task after a user edit
func (g *GoogleCalendar) UpdateTaskEvent(ctx context.Context, task *entities.Task) error {
	if task.CalendarEventID == nil || *task.CalendarEventID == "" || task.Deadline == nil {
		return nil
	}

	var apiErr apiError
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(g.eventFor(task)).
		SetError(&apiErr).
		Patch(g.eventsPath() + "/" + url.PathEscape(*task.CalendarEventID))
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("calendar returned status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if g.logger != nil {
		g.logger.Info("📅 Calendar event updated",
			zap.String("task_id", task.ID.String()),
			zap.String("event_id", *task.CalendarEventID),
		)
	}
	return nil
}

// DeleteTaskEvent removes an event. An event that is already gone is not an error.
func (g *GoogleCalendar) DeleteTaskEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}

	var apiErr apiError
	resp, err := g.http.R().
		SetContext(ctx).
		SetError(&apiErr).
		Delete(g.eventsPath() + "/" + url.PathEscape(eventID))
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound, resp.StatusCode() == http.StatusGone:
	case resp.IsError():
		return fmt.Errorf("calendar returned status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if g.logger != nil {
		g.logger.Info("🗑️ Calendar event removed", zap.String("event_id", eventID))
	}
	return nil
}

func (g *GoogleCalendar) eventsPath() string {
	return "/calendars/" + url.PathEscape(g.calendarID) + "/events"
}

// eventFor builds the all-day event body for a task deadline
func (g *GoogleCalendar) eventFor(task *entities.Task) eventRequest {
	summary := task.Title
	if task.Status == entities.TaskStatusCompleted {
		summary = "[Done] " + summary
	}
	day := task.Deadline.UTC()
	return eventRequest{
		Summary:     summary,
		Description: fmt.Sprintf("%s\n\nAssignee: %s\nPriority: %s", task.Description, task.Assignee, task.Priority),
		Start:       eventDate{Date: day.Format("2006-01-02"), TimeZone: g.timeZone},
		End:         eventDate{Date: day.AddDate(0, 0, 1).Format("2006-01-02"), TimeZone: g.timeZone},
	}
}
