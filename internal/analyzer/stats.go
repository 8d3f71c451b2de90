package analyzer

import (
	"math"
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

const (
	topEmoteLimit       = 10
	activeUserMessages  = 5 // users above this count are active
	highActivityFactor  = 2.0
	maxCapsExcitement   = 2.0
	maxQualitativeScore = 10.0
)

// readabilitySteps maps mean messages/minute to a readability score. Faster chat
// is harder to follow.
var readabilitySteps = []struct {
	maxRate float64
	score   float64
}{
	{10, 1.0},
	{30, 0.8},
	{60, 0.6},
	{120, 0.4},
}

// SummarizeChat computes recording-level statistics for the whole log,
// independently of peak detection. An empty log yields zero values.
func SummarizeChat(log *models.ChatLog, keywords, disallowed []string) models.SummaryStats {
	perMinute, _ := minuteCounts(log.Events)
	stats := models.SummaryStats{
		TotalMessages:    len(log.Events),
		TopEmotes:        []models.EmoteCount{},
		ActivityByMinute: perMinute,
	}
	if len(log.Events) == 0 {
		return stats
	}

	perUser := make(map[string]int)
	for _, ev := range log.Events {
		perUser[ev.UserID]++
		stats.TotalEmotes += len(ev.EmoteTokens)
		if ev.IsSubscriber {
			stats.SubscriberMessages++
		}
		if ev.IsModerator {
			stats.ModeratorMessages++
		}
	}

	total := float64(stats.TotalMessages)
	stats.UniqueUsers = len(perUser)
	stats.SubscriberRatio = float64(stats.SubscriberMessages) / total
	stats.EmoteRatio = float64(stats.TotalEmotes) / total
	stats.TopEmotes = topEmotes(log.Events, topEmoteLimit)
	stats.Users = userDistribution(perUser, stats.TotalMessages)
	stats.Velocity = chatVelocity(perMinute)
	stats.AvgMessagesPerMinute = stats.Velocity.Mean
	stats.ReadabilityScore = readability(stats.Velocity.Mean)

	signal := ScoreContent(log.Events, keywords, disallowed)
	stats.ExcitementLevel = excitementLevel(signal)

	diversity := float64(stats.UniqueUsers) / total
	quality := 3*diversity +
		2*math.Min(stats.EmoteRatio, 1) +
		0.3*stats.ExcitementLevel +
		2*stats.SubscriberRatio -
		5*signal.DisallowedScore -
		5*signal.SpamRatio
	stats.EngagementQuality = clamp(quality, 0, maxQualitativeScore)

	return stats
}

// topEmotes ranks emotes by use, descending. Equal counts keep first-seen order.
func topEmotes(events []models.ChatEvent, limit int) []models.EmoteCount {
	index := make(map[string]int)
	ranking := []models.EmoteCount{}
	for _, ev := range events {
		for _, e := range ev.EmoteTokens {
			i, ok := index[e]
			if !ok {
				i = len(ranking)
				index[e] = i
				ranking = append(ranking, models.EmoteCount{Emote: e})
			}
			ranking[i].Count++
		}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}

func userDistribution(perUser map[string]int, totalMessages int) models.UserDistribution {
	d := models.UserDistribution{}
	if len(perUser) == 0 {
		return d
	}
	lurkers := 0
	for _, n := range perUser {
		if n > activeUserMessages {
			d.ActiveUsers++
		}
		if n == 1 {
			lurkers++
		}
	}
	users := float64(len(perUser))
	d.AvgMessagesPerUser = float64(totalMessages) / users
	d.LurkerRatio = float64(lurkers) / users
	return d
}

func chatVelocity(perMinute []int) models.ChatVelocity {
	v := models.ChatVelocity{}
	if len(perMinute) == 0 {
		return v
	}

	sum := 0
	for _, n := range perMinute {
		sum += n
		if n > v.Peak {
			v.Peak = n
		}
	}
	minutes := float64(len(perMinute))
	v.Mean = float64(sum) / minutes

	sq := 0.0
	for _, n := range perMinute {
		d := float64(n) - v.Mean
		sq += d * d
		if float64(n) > highActivityFactor*v.Mean {
			v.HighActivityMinutes++
		}
	}
	v.Variance = sq / minutes
	return v
}

func readability(meanPerMinute float64) float64 {
	for _, s := range readabilitySteps {
		if meanPerMinute <= s.maxRate {
			return s.score
		}
	}
	return 0.2
}

// excitementLevel scales the content score formula to 0–10, with the caps bonus capped at 2.
func excitementLevel(s models.ContentSignal) float64 {
	level := 10*(2*s.ExcitementScore-2*s.DisallowedScore-s.SpamRatio) + math.Min(30*s.CapsRatio, maxCapsExcitement)
	return clamp(level, 0, maxQualitativeScore)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
