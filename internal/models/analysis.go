package models

import (
	"errors"
	"sort"
	"time"
)

// SensitivityMode selects how far from baseline a window must deviate to count as a peak.
type SensitivityMode string

const (
	SensitivityConservative SensitivityMode = "conservative"
	SensitivityBalanced     SensitivityMode = "balanced"
	SensitivityAggressive   SensitivityMode = "aggressive"
)

// Valid reports whether m is a known mode.
func (m SensitivityMode) Valid() bool {
	switch m {
	case SensitivityConservative, SensitivityBalanced, SensitivityAggressive:
		return true
	}
	return false
}

// AnalysisConfig holds the sensitivity and classification knobs of one analysis.
// It is supplied per call and treated as read-only by the engine.
type AnalysisConfig struct {
	MessageThreshold      int             `json:"message_threshold" yaml:"message_threshold" mapstructure:"message_threshold"`
	EmoteThreshold        int             `json:"emote_threshold" yaml:"emote_threshold" mapstructure:"emote_threshold"`
	PeakWindowSize        int             `json:"peak_window_size" yaml:"peak_window_size" mapstructure:"peak_window_size"`
	MinimumPeakDistance   int             `json:"minimum_peak_distance" yaml:"minimum_peak_distance" mapstructure:"minimum_peak_distance"`
	SensitivityMode       SensitivityMode `json:"sensitivity_mode" yaml:"sensitivity_mode" mapstructure:"sensitivity_mode"`
	UseAdaptiveThresholds bool            `json:"use_adaptive_thresholds" yaml:"use_adaptive_thresholds" mapstructure:"use_adaptive_thresholds"`
	MultiWindowAnalysis   bool            `json:"multi_window_analysis" yaml:"multi_window_analysis" mapstructure:"multi_window_analysis"`
	ContentAnalysis       bool            `json:"content_analysis" yaml:"content_analysis" mapstructure:"content_analysis"`
	WindowSizes           []int           `json:"window_sizes" yaml:"window_sizes" mapstructure:"window_sizes"`
	ExcitementKeywords    []string        `json:"excitement_keywords" yaml:"excitement_keywords" mapstructure:"excitement_keywords"`
	DisallowedTerms       []string        `json:"disallowed_terms" yaml:"disallowed_terms" mapstructure:"disallowed_terms"`
}

// DefaultAnalysisConfig returns the stock settings.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MessageThreshold:      50,
		EmoteThreshold:        10,
		PeakWindowSize:        30,
		MinimumPeakDistance:   120,
		SensitivityMode:       SensitivityBalanced,
		UseAdaptiveThresholds: true,
		MultiWindowAnalysis:   false,
		ContentAnalysis:       true,
		WindowSizes:           []int{15, 30, 60},
		ExcitementKeywords: []string{
			"pog", "poggers", "hype", "insane", "omg", "no way", "clip it", "lets go", "wow", "gg",
		},
		DisallowedTerms: []string{},
	}
}

// AnalyzedWindowSizes returns the distinct window widths an analysis runs,
// sorted ascending. The primary width is always included; alternates only
// when multi-window analysis is on.
func (c AnalysisConfig) AnalyzedWindowSizes() []int {
	seen := map[int]bool{c.PeakWindowSize: true}
	sizes := []int{c.PeakWindowSize}
	if c.MultiWindowAnalysis {
		for _, w := range c.WindowSizes {
			if !seen[w] {
				seen[w] = true
				sizes = append(sizes, w)
			}
		}
	}
	sort.Ints(sizes)
	return sizes
}

// EmoteCount is one entry of the emote frequency ranking.
type EmoteCount struct {
	Emote string `json:"emote"`
	Count int    `json:"count"`
}

// UserDistribution describes how messages spread across chatters.
type UserDistribution struct {
	AvgMessagesPerUser float64 `json:"avg_messages_per_user"`
	ActiveUsers        int     `json:"active_users"` // Users with more than 5 messages
	LurkerRatio        float64 `json:"lurker_ratio"` // Share of users with exactly one message
}

// ChatVelocity describes per-minute chat rates.
type ChatVelocity struct {
	Mean                float64 `json:"mean"`
	Peak                int     `json:"peak"`
	Variance            float64 `json:"variance"`
	HighActivityMinutes int     `json:"high_activity_minutes"` // Minutes above twice the mean
}

// SummaryStats holds recording-level statistics reported next to the peaks.
type SummaryStats struct {
	TotalMessages        int              `json:"total_messages"`
	UniqueUsers          int              `json:"unique_users"`
	TotalEmotes          int              `json:"total_emotes"`
	SubscriberMessages   int              `json:"subscriber_messages"`
	ModeratorMessages    int              `json:"moderator_messages"`
	SubscriberRatio      float64          `json:"subscriber_ratio"`
	EmoteRatio           float64          `json:"emote_ratio"`
	AvgMessagesPerMinute float64          `json:"avg_messages_per_minute"`
	TopEmotes            []EmoteCount     `json:"top_emotes"`
	ActivityByMinute     []int            `json:"activity_by_minute"`
	Users                UserDistribution `json:"users"`
	Velocity             ChatVelocity     `json:"velocity"`
	ReadabilityScore     float64          `json:"readability_score"`
	ExcitementLevel      float64          `json:"excitement_level"`   // 0–10
	EngagementQuality    float64          `json:"engagement_quality"` // 0–10
}

// AnalysisResult is the outcome of analyzing one recording.
// A newer analysis of the same recording replaces it entirely.
type AnalysisResult struct {
	ID                    string                `json:"id"`
	RecordingID           string                `json:"recording_id"`
	RecordingTitle        string                `json:"recording_title"`
	PrimaryTimeline       []WindowPoint         `json:"primary_timeline"`
	TimelinesByWindowSize map[int][]WindowPoint `json:"timelines_by_window_size"`
	Peaks                 []Peak                `json:"peaks"`
	Baseline              Baseline              `json:"baseline"`
	SummaryStats          SummaryStats          `json:"summary_stats"`
	Config                AnalysisConfig        `json:"config"`
	AnalyzedAt            time.Time             `json:"analyzed_at"`
}

// Validate checks the fields storage relies on.
func (r *AnalysisResult) Validate() error {
	if r.ID == "" {
		return errors.New("analysis ID must not be empty")
	}
	if r.RecordingID == "" {
		return errors.New("recording ID must not be empty")
	}
	if r.AnalyzedAt.IsZero() {
		return errors.New("analyzed at must be set")
	}
	if r.AnalyzedAt.After(time.Now()) {
		return errors.New("analyzed at must not be in the future")
	}
	for i := range r.Peaks {
		if err := r.Peaks[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AnalysisSummary is the listing view of a stored analysis.
type AnalysisSummary struct {
	ID             string    `json:"id"`
	RecordingID    string    `json:"recording_id"`
	RecordingTitle string    `json:"recording_title"`
	PeakCount      int       `json:"peak_count"`
	TotalMessages  int       `json:"total_messages"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// Summary returns the listing view of r.
func (r *AnalysisResult) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:             r.ID,
		RecordingID:    r.RecordingID,
		RecordingTitle: r.RecordingTitle,
		PeakCount:      len(r.Peaks),
		TotalMessages:  r.SummaryStats.TotalMessages,
		AnalyzedAt:     r.AnalyzedAt,
	}
}
