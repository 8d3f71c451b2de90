package models

import (
	"math"
)

// ChatEvent is a single chat message replayed against the recording timeline.
// Events are owned by the log they belong to and are never mutated by the engine.
type ChatEvent struct {
	TimestampSeconds float64  `json:"timestamp_seconds"` // Offset from recording start
	UserID           string   `json:"user_id"`
	Text             string   `json:"text"`
	EmoteTokens      []string `json:"emote_tokens,omitempty"` // Emotes in message order
	IsSubscriber     bool     `json:"is_subscriber"`
	IsModerator      bool     `json:"is_moderator"`
}

// ChatLog is the complete, already-collected chat of one recording.
// Events are expected in non-decreasing timestamp order.
type ChatLog struct {
	RecordingID     string      `json:"recording_id"`
	Events          []ChatEvent `json:"events"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// RecordingMetadata is the subset of recording metadata the analysis reports.
type RecordingMetadata struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Channel         string  `json:"channel,omitempty"`
	URL             string  `json:"url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Validate checks that the log can be analyzed: every event must fall in
// [0, duration). An empty event list is valid.
func (l *ChatLog) Validate() error {
	if math.IsNaN(l.DurationSeconds) || math.IsInf(l.DurationSeconds, 0) || l.DurationSeconds <= 0 {
		return InvalidInputf("duration must be a positive number, got %v", l.DurationSeconds)
	}
	for i, ev := range l.Events {
		ts := ev.TimestampSeconds
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return InvalidInputf("event %d has a non-finite timestamp", i)
		}
		if ts < 0 {
			return InvalidInputf("event %d has a negative timestamp %v", i, ts)
		}
		if ts >= l.DurationSeconds {
			return InvalidInputf("event %d at %vs is past the recording end %vs", i, ts, l.DurationSeconds)
		}
	}
	return nil
}
