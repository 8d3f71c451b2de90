package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

var (
	emotes    = []string{"PogChamp", "LUL", "Kappa", "EZ", "Clap", "5Head", "OMEGALUL", "Kreygasm", "MonkaS", "FeelsGoodMan"}
	reactions = []string{"YES!", "NO WAY", "WHAT", "INSANE", "OMG", "NICE", "NOOO", "HYPE", "LOL", "WOW"}
	regulars  = []string{
		"that was sick!",
		"how did he do that?",
		"this streamer is so good",
		"first time watching, loving it",
		"when is the next stream?",
		"can you play that game again?",
		"your setup is amazing",
		"subbed!",
		"gg",
		"wp",
	}
)

// defaultGeneratorConfig is two hours of chat with four bursts of different strength.
func defaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:            42,
		DurationSeconds: 7200,
		IntervalSeconds: 30,
		BaseRate:        20,
		Users:           400,
		Bursts: []Burst{
			{Start: 1800, End: 1900, Multiplier: 3},
			{Start: 3600, End: 3720, Multiplier: 4},
			{Start: 5400, End: 5520, Multiplier: 2.5},
			{Start: 6300, End: 6420, Multiplier: 5},
		},
	}
}

// generateChatLog builds a deterministic chat log for cfg. Each interval gets
// BaseRate messages scaled by a 0.75–1.25 variance, multiplied inside bursts.
// Messages are 30% emotes, 20% short reactions and 50% regular chatter.
func generateChatLog(cfg GeneratorConfig) *models.ChatLog {
	rng := rand.New(rand.NewSource(cfg.Seed))
	var events []models.ChatEvent

	for t := 0; t < cfg.DurationSeconds; t += cfg.IntervalSeconds {
		variance := rng.Float64()*0.5 + 0.75
		count := float64(cfg.BaseRate) * variance
		for _, b := range cfg.Bursts {
			if float64(t) > b.Start && float64(t) < b.End {
				count *= b.Multiplier
			}
		}

		// the last interval may run past the end of the recording
		span := float64(min(cfg.IntervalSeconds, cfg.DurationSeconds-t))
		for i := 0; i < int(count); i++ {
			user := rng.Intn(cfg.Users)
			ev := models.ChatEvent{
				TimestampSeconds: float64(t) + rng.Float64()*span,
				UserID:           fmt.Sprintf("viewer%d", user),
				IsSubscriber:     rng.Float64() < 0.3,
				IsModerator:      user == 0,
			}

			switch kind := rng.Float64(); {
			case kind < 0.3:
				n := rng.Intn(3) + 1
				tokens := make([]string, n)
				for j := range tokens {
					tokens[j] = emotes[rng.Intn(len(emotes))]
				}
				ev.Text = strings.Join(tokens, " ")
				ev.EmoteTokens = tokens
			case kind < 0.5:
				ev.Text = reactions[rng.Intn(len(reactions))]
			default:
				ev.Text = regulars[rng.Intn(len(regulars))]
			}
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimestampSeconds < events[j].TimestampSeconds
	})
	return &models.ChatLog{
		RecordingID:     fmt.Sprintf("synthetic-%d", cfg.Seed),
		Events:          events,
		DurationSeconds: float64(cfg.DurationSeconds),
	}
}
