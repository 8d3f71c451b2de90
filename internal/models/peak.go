package models

import (
	"errors"
	"fmt"
)

// PeakClass is the severity bucket of a peak.
type PeakClass string

const (
	PeakMinor    PeakClass = "minor"
	PeakModerate PeakClass = "moderate"
	PeakMajor    PeakClass = "major"
	PeakMassive  PeakClass = "massive"
	PeakEpic     PeakClass = "epic"
)

// Rank orders classes from minor (0) to epic (4). Unknown classes rank -1.
func (c PeakClass) Rank() int {
	switch c {
	case PeakMinor:
		return 0
	case PeakModerate:
		return 1
	case PeakMajor:
		return 2
	case PeakMassive:
		return 3
	case PeakEpic:
		return 4
	default:
		return -1
	}
}

// Peak is a detected interaction peak.
type Peak struct {
	TimestampSeconds       float64   `json:"timestamp_seconds"` // Start of the peak window
	WindowSize             int       `json:"window_size"`       // Width the peak was detected at
	MessageCount           int       `json:"message_count"`
	EmoteCount             int       `json:"emote_count"`
	UniqueUserCount        int       `json:"unique_user_count"`
	SubscriberMessageCount int       `json:"subscriber_message_count"`
	Intensity              float64   `json:"intensity"`
	NormalizedIntensity    float64   `json:"normalized_intensity"` // Intensity / baseline messages per minute
	ContentScore           float64   `json:"content_score"`
	Classification         PeakClass `json:"classification"`
	MultiWindowSupported   bool      `json:"multi_window_supported"`
	SupportingWindowSizes  []int     `json:"supporting_window_sizes"`
	Confidence             float64   `json:"confidence"`
}

// CombinedScore is the ranking score of the peak.
func (p *Peak) CombinedScore() float64 {
	return p.Intensity + p.ContentScore
}

// Validate checks that all peak fields are within range.
func (p *Peak) Validate() error {
	if p.TimestampSeconds < 0 {
		return errors.New("peak timestamp must not be negative")
	}
	if p.UniqueUserCount > p.MessageCount {
		return errors.New("unique user count must not exceed message count")
	}
	if p.SubscriberMessageCount > p.MessageCount {
		return errors.New("subscriber message count must not exceed message count")
	}
	if p.Intensity < 0 || p.ContentScore < 0 {
		return errors.New("intensity and content score must not be negative")
	}
	if p.Confidence < 0.0 || p.Confidence > 1.0 {
		return errors.New("confidence must be between 0.0 and 1.0")
	}
	if p.Classification.Rank() < 0 {
		return fmt.Errorf("unknown classification %q", p.Classification)
	}
	return nil
}
