package analyzer

import (
	"math"
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

// MergeTolerance is how far (seconds) a peak may lie from the first member of a
// group and still join it.
const MergeTolerance = 60.0

// peakGroup is a run of temporally close peaks detected at one or more widths.
type peakGroup struct {
	members []models.Peak
	rep     int // index into members of the representative
}

// MergePeaks consolidates peaks detected at different window widths. Peaks are
// grouped greedily in timestamp order; a peak joins the current group when it lies
// within MergeTolerance of the group's first member. Each group is reported by its
// member with the highest normalized intensity. The result is in timestamp order.
func MergePeaks(peaks []models.Peak, totalWidths int) []models.Peak {
	groups := mergeGroups(peaks)
	merged := make([]models.Peak, 0, len(groups))
	for _, g := range groups {
		merged = append(merged, g.consolidate(totalWidths))
	}
	return merged
}

func mergeGroups(peaks []models.Peak) []peakGroup {
	if len(peaks) == 0 {
		return nil
	}

	sorted := make([]models.Peak, len(peaks))
	copy(sorted, peaks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TimestampSeconds != sorted[j].TimestampSeconds {
			return sorted[i].TimestampSeconds < sorted[j].TimestampSeconds
		}
		return sorted[i].WindowSize < sorted[j].WindowSize
	})

	var groups []peakGroup
	current := peakGroup{members: []models.Peak{sorted[0]}}
	for _, p := range sorted[1:] {
		if p.TimestampSeconds-current.members[0].TimestampSeconds <= MergeTolerance {
			current.members = append(current.members, p)
			continue
		}
		groups = append(groups, current)
		current = peakGroup{members: []models.Peak{p}}
	}
	groups = append(groups, current)

	for i := range groups {
		groups[i].rep = groups[i].strongest()
	}
	return groups
}

// strongest returns the index of the member with the highest normalized intensity.
// The earliest member wins ties.
func (g peakGroup) strongest() int {
	best := 0
	for i, p := range g.members {
		if p.NormalizedIntensity > g.members[best].NormalizedIntensity {
			best = i
		}
	}
	return best
}

// widths returns the distinct widths present in the group, ascending.
func (g peakGroup) widths() []int {
	seen := make(map[int]bool, len(g.members))
	out := make([]int, 0, len(g.members))
	for _, p := range g.members {
		if !seen[p.WindowSize] {
			seen[p.WindowSize] = true
			out = append(out, p.WindowSize)
		}
	}
	sort.Ints(out)
	return out
}

func (g peakGroup) confidence(totalWidths int) float64 {
	return math.Min(1, float64(len(g.members))/float64(max(totalWidths, 1)))
}

func (g peakGroup) supported() bool {
	return len(g.members) > 1
}

// contains reports whether the group holds a peak detected at width and timestamp.
func (g peakGroup) contains(width int, timestamp float64) bool {
	for _, p := range g.members {
		if p.WindowSize == width && p.TimestampSeconds == timestamp {
			return true
		}
	}
	return false
}

// consolidate returns the representative annotated with the group's multi-width support.
func (g peakGroup) consolidate(totalWidths int) models.Peak {
	p := g.members[g.rep]
	p.MultiWindowSupported = g.supported()
	p.SupportingWindowSizes = g.widths()
	p.Confidence = g.confidence(totalWidths)
	return p
}
