package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
	"github.com/johnquangdev/meeting-pipeline/pkg/jobcontext"
)

// AudioURLResolver turns a stored audio reference into a URL the vendor can fetch
type AudioURLResolver interface {
	PresignAudio(ctx context.Context, objectKey string) (string, error)
}

// AssemblyAITranscriber transcribes stored recordings with the AssemblyAI SDK.
// TranscribeFromURL submits the job and polls until it settles, so one call is
// one attempt from the orchestrator's point of view.
type AssemblyAITranscriber struct {
	client        *aai.Client
	resolver      AudioURLResolver
	languageCode  string
	speakerLabels bool
	logger        *zap.Logger
}

var _ stages.Transcriber = (*AssemblyAITranscriber)(nil)

// NewAssemblyAITranscriber creates the transcription stage adapter
func NewAssemblyAITranscriber(cfg config.AssemblyConfig, resolver AudioURLResolver, logger *zap.Logger) *AssemblyAITranscriber {
	opts := []aai.ClientOption{aai.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, aai.WithBaseURL(cfg.BaseURL))
	}
	return &AssemblyAITranscriber{
		client:        aai.NewClientWithOptions(opts...),
		resolver:      resolver,
		languageCode:  cfg.LanguageCode,
		speakerLabels: cfg.SpeakerLabels,
		logger:        logger,
	}
}

// Transcribe fetches a presigned URL for audioRef and waits for the transcript
func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audioRef string) (*entities.Transcript, error) {
	audioURL, err := t.resolver.PresignAudio(ctx, audioRef)
	if err != nil {
		return nil, entities.TransientFailure(entities.ReasonUnavailable, fmt.Errorf("failed to presign audio: %w", err))
	}
	jobcontext.ReportProgress(ctx, 10)

	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(t.speakerLabels),
	}
	if t.languageCode != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(t.languageCode)
	}

	if t.logger != nil {
		t.logger.Info("🎙️ Starting transcription",
			zap.String("audio_ref", audioRef),
			zap.String("language", t.languageCode),
			zap.Int("attempt", jobcontext.GetRetryAttempt(ctx)),
		)
	}

	transcript, err := t.client.Transcripts.TranscribeFromURL(ctx, audioURL, params)
	if err != nil {
		return nil, classifyTranscriptionError(err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		msg := "transcription failed"
		if transcript.Error != nil {
			msg = *transcript.Error
		}
		return nil, vendorFailure(msg)
	}
	jobcontext.ReportProgress(ctx, 90)

	out := toTranscript(transcript)
	out.Language = t.languageCode
	if t.logger != nil {
		t.logger.Info("✅ Transcription received",
			zap.String("transcript_id", out.ExternalID),
			zap.Int("duration_seconds", out.DurationSeconds),
			zap.Int("speakers", out.SpeakerCount),
		)
	}
	return out, nil
}

func toTranscript(tr aai.Transcript) *entities.Transcript {
	out := &entities.Transcript{
		ID:        uuid.New(),
		ModelUsed: "assemblyai",
	}
	if tr.ID != nil {
		out.ExternalID = *tr.ID
	}
	if tr.Text != nil {
		out.Text = *tr.Text
	}
	if tr.Confidence != nil {
		out.ConfidenceScore = *tr.Confidence
	}
	if tr.AudioDuration != nil {
		out.DurationSeconds = int(*tr.AudioDuration)
	}

	words := make([]entities.WordTimestamp, 0, len(tr.Words))
	for _, w := range tr.Words {
		var word entities.WordTimestamp
		if w.Text != nil {
			word.Word = *w.Text
		}
		if w.Start != nil {
			word.Start = float64(*w.Start) / 1000
		}
		if w.End != nil {
			word.End = float64(*w.End) / 1000
		}
		if w.Confidence != nil {
			word.Confidence = *w.Confidence
		}
		if w.Speaker != nil {
			word.Speaker = *w.Speaker
		}
		words = append(words, word)
	}
	out.Words = words
	out.SpeakerCount = speakerCount(words)
	return out
}

func speakerCount(words []entities.WordTimestamp) int {
	seen := make(map[string]struct{})
	for _, w := range words {
		if w.Speaker != "" {
			seen[w.Speaker] = struct{}{}
		}
	}
	return len(seen)
}

// classifyTranscriptionError maps SDK and transport errors onto stage failures
func classifyTranscriptionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.TransientFailure(entities.ReasonTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr aai.APIError
	if errors.As(err, &apiErr) {
		return statusFailure("assemblyai", apiErr.Status, apiErr.Message)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return entities.TransientFailure(entities.ReasonUnavailable, err)
	}
	// unrecognised errors go through the orchestrator's own classifier
	return fmt.Errorf("assemblyai: %w", err)
}

// vendorFailure classifies an error reported on a settled transcript
func vendorFailure(msg string) *entities.StageFailure {
	err := fmt.Errorf("assemblyai: %s", msg)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "format"), strings.Contains(lower, "codec"),
		strings.Contains(lower, "does not appear to contain audio"), strings.Contains(lower, "decode"):
		return entities.PermanentFailure(entities.ReasonUnsupportedFormat, err)
	case strings.Contains(lower, "download"), strings.Contains(lower, "timed out"), strings.Contains(lower, "internal"):
		return entities.TransientFailure(entities.ReasonUnavailable, err)
	}
	return entities.PermanentFailure(entities.ReasonInvalidInput, err)
}
