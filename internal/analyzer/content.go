package analyzer

import (
	"math"
	"strings"
	"unicode"

	"github.com/rewired-gh/chatpeaks/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// spamRepeatLimit is how many times the same normalized text may appear in a group
// before further occurrences count as spam.
const spamRepeatLimit = 3

// ScoreContent computes the content signal of a group of chat events.
// Keyword and disallowed-term matching is a case-insensitive substring match.
// Ratios are 0 for an empty group.
func ScoreContent(events []models.ChatEvent, keywords, disallowed []string) models.ContentSignal {
	if len(events) == 0 {
		return models.ContentSignal{}
	}

	// Casers keep internal state; one per call keeps concurrent callers safe.
	fold := cases.Fold()
	lower := cases.Lower(language.Und)
	kw := foldTerms(fold, keywords)
	bad := foldTerms(fold, disallowed)

	var excited, flagged, spam, upper, chars int
	repeats := make(map[string]int)

	for _, ev := range events {
		folded := fold.String(ev.Text)
		if containsAny(folded, kw) {
			excited++
		}
		if containsAny(folded, bad) {
			flagged++
		}

		for _, r := range ev.Text {
			chars++
			if unicode.IsUpper(r) {
				upper++
			}
		}

		if norm := normalizeText(lower, ev.Text); norm != "" {
			repeats[norm]++
			if repeats[norm] > spamRepeatLimit {
				spam++
			}
		}
	}

	n := float64(len(events))
	signal := models.ContentSignal{
		ExcitementScore:  float64(excited) / n,
		DisallowedScore:  float64(flagged) / n,
		SpamRatio:        float64(spam) / n,
		AvgMessageLength: float64(chars) / n,
	}
	if chars > 0 {
		signal.CapsRatio = float64(upper) / float64(chars)
	}
	return signal
}

// ContentScore folds a content signal into one non-negative score:
// 2×excitement − 2×disallowed + min(3×caps, 1) − spam, floored at 0.
func ContentScore(s models.ContentSignal) float64 {
	score := 2*s.ExcitementScore - 2*s.DisallowedScore + math.Min(3*s.CapsRatio, 1) - s.SpamRatio
	return math.Max(0, score)
}

// normalizeText lowercases text and collapses runs of whitespace.
func normalizeText(lower cases.Caser, text string) string {
	return strings.Join(strings.Fields(lower.String(text)), " ")
}

func foldTerms(fold cases.Caser, terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, fold.String(t))
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
