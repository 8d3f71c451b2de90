package analyzer

import (
	"math"
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

// EstimateBaseline computes per-minute activity statistics for the whole log.
// Minutes without chat up to the last active minute count as zero.
func EstimateBaseline(log *models.ChatLog) models.Baseline {
	perMinute, emotesPerMinute := minuteCounts(log.Events)

	baseline := models.Baseline{PerMinuteActivity: perMinute}
	if len(perMinute) == 0 {
		return baseline
	}

	total, emotes := 0, 0
	for i := range perMinute {
		total += perMinute[i]
		emotes += emotesPerMinute[i]
	}
	minutes := float64(len(perMinute))
	baseline.AvgMessagesPerMinute = float64(total) / minutes
	baseline.AvgEmotesPerMinute = float64(emotes) / minutes

	sorted := make([]int, len(perMinute))
	copy(sorted, perMinute)
	sort.Ints(sorted)
	baseline.MessageCountPercentiles = models.Percentiles{
		P50: Percentile(sorted, 50),
		P75: Percentile(sorted, 75),
		P90: Percentile(sorted, 90),
		P95: Percentile(sorted, 95),
	}
	return baseline
}

// Percentile returns the nearest-rank percentile p (0–100) of an ascending slice:
// index = ceil(p/100 · n) − 1, clamped to [0, n−1]. Returns 0 for an empty slice.
func Percentile[T int | float64](sorted []T, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return float64(sorted[idx])
}

// minuteCounts returns message and emote counts per minute, gap-filled with zeros
// up to the last minute that has an event.
func minuteCounts(events []models.ChatEvent) (messages, emotes []int) {
	if len(events) == 0 {
		return []int{}, []int{}
	}

	last := 0
	for _, ev := range events {
		if m := minuteOf(ev); m > last {
			last = m
		}
	}

	messages = make([]int, last+1)
	emotes = make([]int, last+1)
	for _, ev := range events {
		m := minuteOf(ev)
		messages[m]++
		emotes[m] += len(ev.EmoteTokens)
	}
	return messages, emotes
}

func minuteOf(ev models.ChatEvent) int {
	if ev.TimestampSeconds <= 0 {
		return 0
	}
	return int(math.Floor(ev.TimestampSeconds / 60))
}
