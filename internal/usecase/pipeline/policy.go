package pipeline

import (
	"time"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

// Policy bounds how long and how often a stage may be attempted
type Policy struct {
	MaxRetries           int
	Backoff              time.Duration
	TranscriptionTimeout time.Duration
	AnalysisTimeout      time.Duration
	ExtractionTimeout    time.Duration
	StaleAfter           time.Duration
}

// NewPolicy builds the retry policy from the pipeline configuration
func NewPolicy(cfg config.PipelineConfig) Policy {
	return Policy{
		MaxRetries:           cfg.MaxRetries,
		Backoff:              cfg.RetryBackoff,
		TranscriptionTimeout: cfg.TranscriptionTimeout,
		AnalysisTimeout:      cfg.AnalysisTimeout,
		ExtractionTimeout:    cfg.ExtractionTimeout,
		StaleAfter:           cfg.StaleAfter,
	}
}

// Timeout returns the wall-clock budget of one attempt of the given step
func (p Policy) Timeout(kind entities.StepKind) time.Duration {
	switch kind {
	case entities.StepTranscription:
		return p.TranscriptionTimeout
	case entities.StepAnalysis:
		return p.AnalysisTimeout
	case entities.StepTimelineExtraction, entities.StepTaskExtraction:
		return p.ExtractionTimeout
	}
	return p.ExtractionTimeout
}
