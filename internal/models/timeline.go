package models

// ContentSignal summarizes the text of a group of chat events.
type ContentSignal struct {
	ExcitementScore  float64 `json:"excitement_score"`   // Share of events containing an excitement keyword
	DisallowedScore  float64 `json:"disallowed_score"`   // Share of events containing a disallowed term
	CapsRatio        float64 `json:"caps_ratio"`         // Uppercase letters / all characters, across the group
	SpamRatio        float64 `json:"spam_ratio"`         // Share of events flagged as repeated text
	AvgMessageLength float64 `json:"avg_message_length"` // Characters per event
}

// WindowPoint holds the aggregates of one fixed-width window of the timeline.
// Window k of width w covers [k·w, k·w + w).
type WindowPoint struct {
	WindowStart            float64       `json:"window_start"`
	WindowSizeSeconds      float64       `json:"window_size_seconds"`
	MessageCount           int           `json:"message_count"`
	EmoteCount             int           `json:"emote_count"`
	UniqueUserCount        int           `json:"unique_user_count"`
	SubscriberMessageCount int           `json:"subscriber_message_count"`
	MessagesPerSecond      float64       `json:"messages_per_second"`
	Content                ContentSignal `json:"content"`
}

// Percentiles holds nearest-rank cutoffs of the per-minute message counts.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// At returns the cutoff for p (50, 75, 90 or 95). Other values fall back to P90.
func (p Percentiles) At(percentile int) float64 {
	switch percentile {
	case 50:
		return p.P50
	case 75:
		return p.P75
	case 95:
		return p.P95
	default:
		return p.P90
	}
}

// Baseline holds stream-wide per-minute activity statistics for one recording.
type Baseline struct {
	AvgMessagesPerMinute    float64     `json:"avg_messages_per_minute"`
	AvgEmotesPerMinute      float64     `json:"avg_emotes_per_minute"`
	MessageCountPercentiles Percentiles `json:"message_count_percentiles"`
	PerMinuteActivity       []int       `json:"per_minute_activity"` // Index = minute, gaps filled with 0
}
