// Package orchestrator composes chat fetching, peak analysis and persistence
// into request/response operations.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/chatpeaks/internal/analyzer"
	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// ContentSource fetches recordings. Missing recordings fail with models.ErrNotFound.
type ContentSource interface {
	FetchChatLog(ctx context.Context, recordingID string) (*models.ChatLog, error)
	FetchMetadata(ctx context.Context, recordingID string) (*models.RecordingMetadata, error)
}

// Store persists analyses keyed by recording ID. GetAnalysis returns nil, nil
// when no analysis exists.
type Store interface {
	UpsertAnalysis(ctx context.Context, result *models.AnalysisResult) error
	GetAnalysis(ctx context.Context, recordingID string) (*models.AnalysisResult, error)
	ListAnalyses(ctx context.Context, limit int) ([]models.AnalysisSummary, error)
	DeleteAnalysis(ctx context.Context, recordingID string) error
}

// Notifier announces finished analyses.
type Notifier interface {
	SendAnalysis(result *models.AnalysisResult) error
}

// AnalyzeRequest carries everything one analysis needs.
type AnalyzeRequest struct {
	RecordingID string
	ChatLog     *models.ChatLog
	Metadata    models.RecordingMetadata
	Config      models.AnalysisConfig
}

// Orchestrator runs analyses and manages their stored results.
type Orchestrator struct {
	source   ContentSource
	store    Store
	notifier Notifier
	defaults models.AnalysisConfig
	now      func() time.Time
}

// New creates an Orchestrator. source and notifier may be nil: without a source
// only Analyze with an inline chat log works, and without a notifier nothing is announced.
func New(source ContentSource, store Store, notifier Notifier, defaults models.AnalysisConfig) *Orchestrator {
	return &Orchestrator{
		source:   source,
		store:    store,
		notifier: notifier,
		defaults: defaults,
		now:      time.Now,
	}
}

// Defaults returns the analysis config used when a request does not supply one.
func (o *Orchestrator) Defaults() models.AnalysisConfig {
	return o.defaults
}

// Analyze runs the engine on the request's chat log, stores the result
// (replacing any earlier analysis of the same recording) and announces it.
// A notification failure is logged and does not fail the analysis.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	if req.RecordingID == "" {
		return nil, models.InvalidInputf("recording ID is required")
	}
	if req.ChatLog == nil {
		return nil, models.InvalidInputf("chat log is required")
	}

	log := *req.ChatLog
	if log.RecordingID == "" {
		log.RecordingID = req.RecordingID
	} else if log.RecordingID != req.RecordingID {
		return nil, models.InvalidInputf("chat log belongs to %q, not %q", log.RecordingID, req.RecordingID)
	}

	startTime := time.Now()
	report, err := analyzer.Run(&log, req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", req.RecordingID, err)
	}

	title := req.Metadata.Title
	if title == "" {
		title = req.RecordingID
	}
	result := &models.AnalysisResult{
		ID:                    uuid.New().String(),
		RecordingID:           req.RecordingID,
		RecordingTitle:        title,
		PrimaryTimeline:       report.Primary,
		TimelinesByWindowSize: report.Timelines,
		Peaks:                 report.Peaks,
		Baseline:              report.Baseline,
		SummaryStats:          report.Stats,
		Config:                req.Config,
		AnalyzedAt:            o.now(),
	}

	if err := o.store.UpsertAnalysis(ctx, result); err != nil {
		return nil, models.Upstream("store analysis", err)
	}

	logger.Info("Analyzed %s: %d messages, %d peaks (took %v)",
		req.RecordingID, result.SummaryStats.TotalMessages, len(result.Peaks), time.Since(startTime))

	if o.notifier != nil && len(result.Peaks) > 0 {
		if err := o.notifier.SendAnalysis(result); err != nil {
			logger.Warn("Failed to send notification for %s: %v", req.RecordingID, err)
		}
	}

	return result, nil
}

// AnalyzeRecording fetches a recording's chat and metadata from the content source
// and analyzes it. cfg overrides the default config when non-nil. Missing metadata
// is tolerated; the recording ID then stands in for the title.
func (o *Orchestrator) AnalyzeRecording(ctx context.Context, recordingID string, cfg *models.AnalysisConfig) (*models.AnalysisResult, error) {
	if recordingID == "" {
		return nil, models.InvalidInputf("recording ID is required")
	}
	if o.source == nil {
		return nil, models.Upstream("fetch chat log", errors.New("no content source configured"))
	}

	logger.Debug("Fetching chat log for %s", recordingID)
	chatLog, err := o.source.FetchChatLog(ctx, recordingID)
	if err != nil {
		return nil, models.Upstream("fetch chat log", err)
	}

	var metadata models.RecordingMetadata
	meta, err := o.source.FetchMetadata(ctx, recordingID)
	switch {
	case err == nil && meta != nil:
		metadata = *meta
	case err == nil, errors.Is(err, models.ErrNotFound):
		logger.Warn("No metadata for %s, using the recording ID as title", recordingID)
	default:
		return nil, models.Upstream("fetch metadata", err)
	}

	analysisConfig := o.defaults
	if cfg != nil {
		analysisConfig = *cfg
	}

	return o.Analyze(ctx, AnalyzeRequest{
		RecordingID: recordingID,
		ChatLog:     chatLog,
		Metadata:    metadata,
		Config:      analysisConfig,
	})
}

// Get returns the stored analysis of a recording or models.ErrNotFound.
func (o *Orchestrator) Get(ctx context.Context, recordingID string) (*models.AnalysisResult, error) {
	result, err := o.store.GetAnalysis(ctx, recordingID)
	if err != nil {
		return nil, models.Upstream("get analysis", err)
	}
	if result == nil {
		return nil, fmt.Errorf("analysis of %s: %w", recordingID, models.ErrNotFound)
	}
	return result, nil
}

// List returns summaries of stored analyses, newest first.
func (o *Orchestrator) List(ctx context.Context, limit int) ([]models.AnalysisSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	summaries, err := o.store.ListAnalyses(ctx, limit)
	if err != nil {
		return nil, models.Upstream("list analyses", err)
	}
	return summaries, nil
}

// Delete removes the stored analysis of a recording.
func (o *Orchestrator) Delete(ctx context.Context, recordingID string) error {
	if err := o.store.DeleteAnalysis(ctx, recordingID); err != nil {
		return models.Upstream("delete analysis", err)
	}
	logger.Info("Deleted analysis of %s", recordingID)
	return nil
}
