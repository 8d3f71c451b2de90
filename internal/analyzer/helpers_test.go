package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func event(ts float64, user, text string, emotes ...string) models.ChatEvent {
	return models.ChatEvent{TimestampSeconds: ts, UserID: user, Text: text, EmoteTokens: emotes}
}

// burstLog builds a 600s recording with 3 background messages in every 30s window
// and 100 extra messages from distinct users in [300, 330). burstText formats the
// text of burst message i.
func burstLog(burstText func(i int) string) *models.ChatLog {
	var events []models.ChatEvent
	for k := 0; k < 20; k++ {
		for j := 0; j < 3; j++ {
			ts := float64(k*30) + float64(j)*10
			events = append(events, event(ts, fmt.Sprintf("bg-%d-%d", k, j), fmt.Sprintf("just chatting %d %d", k, j)))
		}
	}
	for i := 0; i < 100; i++ {
		events = append(events, event(300+float64(i)*0.3, fmt.Sprintf("burst-%d", i), burstText(i)))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimestampSeconds < events[j].TimestampSeconds
	})
	return &models.ChatLog{RecordingID: "v1", Events: events, DurationSeconds: 600}
}

func distinctHype(i int) string { return fmt.Sprintf("LETS GO %d", i) }

// scenarioConfig is the single-width, fixed-threshold config used by the scenarios.
func scenarioConfig() models.AnalysisConfig {
	cfg := models.DefaultAnalysisConfig()
	cfg.PeakWindowSize = 30
	cfg.MessageThreshold = 50
	cfg.SensitivityMode = models.SensitivityBalanced
	cfg.UseAdaptiveThresholds = false
	cfg.MultiWindowAnalysis = false
	return cfg
}

// alternatingLog has one 30s window of 2 messages followed by one of 40, repeated
// for the given duration. Every message comes from a distinct user.
func alternatingLog(duration int) *models.ChatLog {
	var events []models.ChatEvent
	n := 0
	for k := 0; k*30 < duration; k++ {
		count := 2
		if k%2 == 1 {
			count = 40
		}
		for j := 0; j < count; j++ {
			ts := float64(k*30) + float64(j)*30/float64(count)
			events = append(events, event(ts, fmt.Sprintf("u%d", n), fmt.Sprintf("msg %d", n)))
			n++
		}
	}
	return &models.ChatLog{RecordingID: "alt", Events: events, DurationSeconds: float64(duration)}
}

// rampLog builds a 600s recording with 5 messages in every 30s window, except
// [270, 300) with 40 and [300, 330) with 100, so the maximum sits on a rising
// shoulder. Every message comes from a distinct user.
func rampLog() *models.ChatLog {
	var events []models.ChatEvent
	for k := 0; k < 20; k++ {
		count := 5
		switch k * 30 {
		case 270:
			count = 40
		case 300:
			count = 100
		}
		for j := 0; j < count; j++ {
			ts := float64(k*30) + float64(j)*30/float64(count)
			events = append(events, event(ts, fmt.Sprintf("u-%d-%d", k, j), fmt.Sprintf("POG %d", j)))
		}
	}
	return &models.ChatLog{RecordingID: "ramp", Events: events, DurationSeconds: 600}
}
