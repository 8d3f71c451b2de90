package analyzer

import (
	"fmt"
	"math"

	"github.com/rewired-gh/chatpeaks/internal/models"
	"golang.org/x/sync/errgroup"
)

// BuildTimeline buckets the log into windows of the given width (seconds).
// The windows cover [0, duration) contiguously; window k covers [k·w, k·w + w).
// Fails with ErrInvalidInput on a malformed log or a non-positive width.
func BuildTimeline(log *models.ChatLog, width int, keywords, disallowed []string) ([]models.WindowPoint, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, models.InvalidInputf("window width must be positive, got %d", width)
	}
	return buildTimeline(log, width, keywords, disallowed), nil
}

// BuildTimelines builds one timeline per width. Widths are processed concurrently;
// any failure aborts the whole build.
func BuildTimelines(log *models.ChatLog, widths []int, keywords, disallowed []string) (map[int][]models.WindowPoint, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	for _, w := range widths {
		if w <= 0 {
			return nil, models.InvalidInputf("window width must be positive, got %d", w)
		}
	}

	results := make([][]models.WindowPoint, len(widths))
	var g errgroup.Group
	for i, w := range widths {
		g.Go(func() error {
			results[i] = buildTimeline(log, w, keywords, disallowed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build timelines: %w", err)
	}

	timelines := make(map[int][]models.WindowPoint, len(widths))
	for i, w := range widths {
		timelines[w] = results[i]
	}
	return timelines, nil
}

// buildTimeline assumes a validated log and a positive width.
func buildTimeline(log *models.ChatLog, width int, keywords, disallowed []string) []models.WindowPoint {
	w := float64(width)
	n := int(math.Ceil(log.DurationSeconds / w))

	buckets := make([][]models.ChatEvent, n)
	for _, ev := range log.Events {
		// ts < duration, but ts/w can still round up to n.
		k := min(int(math.Floor(ev.TimestampSeconds/w)), n-1)
		buckets[k] = append(buckets[k], ev)
	}

	timeline := make([]models.WindowPoint, n)
	for k, events := range buckets {
		point := models.WindowPoint{
			WindowStart:       float64(k) * w,
			WindowSizeSeconds: w,
			MessageCount:      len(events),
			MessagesPerSecond: float64(len(events)) / w,
			Content:           ScoreContent(events, keywords, disallowed),
		}

		users := make(map[string]struct{}, len(events))
		for _, ev := range events {
			point.EmoteCount += len(ev.EmoteTokens)
			users[ev.UserID] = struct{}{}
			if ev.IsSubscriber {
				point.SubscriberMessageCount++
			}
		}
		point.UniqueUserCount = len(users)

		timeline[k] = point
	}
	return timeline
}
