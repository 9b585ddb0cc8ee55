package ai

import (
	"context"
	"errors"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
)

// PortionExtractor serves both extraction steps from the portions the unified
// analysis call already persisted. No network call is made, and a missing or
// malformed portion fails only the step that owns it.
type PortionExtractor struct{}

var (
	_ stages.TimelineExtractor = PortionExtractor{}
	_ stages.TaskExtractor     = PortionExtractor{}
)

// NewPortionExtractor creates a shared-mode extractor
func NewPortionExtractor() PortionExtractor {
	return PortionExtractor{}
}

func (PortionExtractor) ExtractTimeline(ctx context.Context, in stages.ExtractionInput) ([]*entities.TimelineEntry, error) {
	if in.Analysis == nil {
		return nil, entities.PermanentFailure(entities.ReasonInvalidInput, errors.New("analysis result missing"))
	}
	return ParseTimeline(in.MeetingID, in.Analysis.Timeline)
}

func (PortionExtractor) ExtractTasks(ctx context.Context, in stages.ExtractionInput) ([]*entities.Task, error) {
	if in.Analysis == nil {
		return nil, entities.PermanentFailure(entities.ReasonInvalidInput, errors.New("analysis result missing"))
	}
	return ParseTasks(in.MeetingID, in.Analysis.Tasks)
}
