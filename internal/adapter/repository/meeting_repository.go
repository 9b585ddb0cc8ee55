package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// meetingRepository implements the MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

// CreateWithSteps stores the meeting and its four pending steps atomically
func (r *meetingRepository) CreateWithSteps(ctx context.Context, meeting *entities.Meeting, steps []*entities.ProcessingStep) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(meeting).Error; err != nil {
			return fmt.Errorf("failed to create meeting: %w", err)
		}
		for _, s := range steps {
			s.MeetingID = meeting.ID
		}
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return fmt.Errorf("failed to create processing steps: %w", err)
			}
		}
		return nil
	})
}

// FindByID retrieves a meeting by its ID
func (r *meetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	var meeting entities.Meeting
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&meeting).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meeting, nil
}

// List retrieves meetings with filters and pagination, newest first
func (r *meetingRepository) List(ctx context.Context, filters repositories.MeetingFilters) ([]*entities.Meeting, int64, error) {
	var meetings []*entities.Meeting
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Meeting{}).
		Where("user_id = ?", filters.UserID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&meetings).Error; err != nil {
		return nil, 0, err
	}

	return meetings, total, nil
}

// FindByStatus retrieves meetings in the given overall status, oldest first
func (r *meetingRepository) FindByStatus(ctx context.Context, status entities.MeetingStatus, limit int) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&meetings).Error; err != nil {
		return nil, err
	}
	return meetings, nil
}

// FindHooksPending retrieves completed meetings with no hooks marker, oldest first
func (r *meetingRepository) FindHooksPending(ctx context.Context, limit int) ([]*entities.Meeting, error) {
	var meetings []*entities.Meeting
	query := r.db.WithContext(ctx).
		Where("status = ? AND hooks_ran_at IS NULL", entities.MeetingStatusCompleted).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&meetings).Error; err != nil {
		return nil, err
	}
	return meetings, nil
}

// MarkHooksRun stamps hooks_ran_at on the meeting
func (r *meetingRepository) MarkHooksRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("id = ?", id).
		UpdateColumn("hooks_ran_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark hooks: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.ErrMeetingNotFound
	}
	return nil
}

// DeleteCascade removes the meeting and everything it owns
func (r *meetingRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, kind := range entities.StepSequence {
			if err := deleteDerived(tx, id, kind); err != nil {
				return err
			}
		}
		if err := tx.Where("meeting_id = ?", id).Delete(&entities.ProcessingStep{}).Error; err != nil {
			return fmt.Errorf("failed to delete processing steps: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&entities.Meeting{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete meeting: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return entities.ErrMeetingNotFound
		}
		return nil
	})
}

type statusCount struct {
	Status string
	Count  int64
}

// Stats aggregates a user's meeting and task counters
func (r *meetingRepository) Stats(ctx context.Context, userID uuid.UUID) (*repositories.MeetingStats, error) {
	db := r.db.WithContext(ctx)
	stats := &repositories.MeetingStats{
		MeetingsByStatus: make(map[entities.MeetingStatus]int64),
		TasksByStatus:    make(map[entities.TaskStatus]int64),
	}

	var meetingRows []statusCount
	if err := db.Model(&entities.Meeting{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&meetingRows).Error; err != nil {
		return nil, fmt.Errorf("failed to count meetings: %w", err)
	}
	for _, row := range meetingRows {
		stats.MeetingsByStatus[entities.MeetingStatus(row.Status)] = row.Count
		stats.TotalMeetings += row.Count
	}

	var taskRows []statusCount
	if err := db.Model(&entities.Task{}).
		Select("tasks.status AS status, COUNT(*) AS count").
		Joins("JOIN meetings ON meetings.id = tasks.meeting_id").
		Where("meetings.user_id = ?", userID).
		Group("tasks.status").
		Scan(&taskRows).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	for _, row := range taskRows {
		stats.TasksByStatus[entities.TaskStatus(row.Status)] = row.Count
		stats.TotalTasks += row.Count
	}

	var duration struct{ Total int64 }
	if err := db.Model(&entities.Meeting{}).
		Select("COALESCE(SUM(duration_seconds), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&duration).Error; err != nil {
		return nil, fmt.Errorf("failed to sum durations: %w", err)
	}
	stats.TotalDurationSeconds = duration.Total

	return stats, nil
}
