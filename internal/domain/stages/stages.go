// Package stages declares the capability contracts the pipeline calls out to.
//
// Implementations return *entities.StageFailure to say whether a failure may be
// retried. Any other error is classified by the orchestrator.
package stages

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// Transcriber turns a stored recording into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (*entities.Transcript, error)
}

// Analyzer produces the summary and, when unified, the raw timeline and task portions
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (*entities.AnalysisResult, error)
}

// ExtractionInput is what the extraction steps get to work from
type ExtractionInput struct {
	MeetingID  uuid.UUID
	Transcript *entities.Transcript
	Analysis   *entities.AnalysisResult
}

// TimelineExtractor builds the timeline entries of a meeting
type TimelineExtractor interface {
	ExtractTimeline(ctx context.Context, in ExtractionInput) ([]*entities.TimelineEntry, error)
}

// TaskExtractor builds the action items of a meeting
type TaskExtractor interface {
	ExtractTasks(ctx context.Context, in ExtractionInput) ([]*entities.Task, error)
}

// Set bundles one implementation per step kind
type Set struct {
	Transcriber Transcriber
	Analyzer    Analyzer
	Timeline    TimelineExtractor
	Tasks       TaskExtractor
}
