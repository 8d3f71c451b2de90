package analyzer

import (
	"math"
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

const (
	// trendHalfWindow is the half-width of the centered moving average used as local trend.
	trendHalfWindow = 1

	// fixedIntensityThreshold is the intensity a window must exceed when thresholds are
	// not adaptive, and the floor of the adaptive intensity threshold.
	fixedIntensityThreshold = 1.5

	// adaptiveFloorFactor keeps the adaptive message floor at or above half the configured floor.
	adaptiveFloorFactor = 0.5

	// minContentScore and maxSpamRatio gate candidates when content analysis is on.
	minContentScore = 0.1
	maxSpamRatio    = 0.5

	// Chat faster than readableRate messages/second is penalized by readabilityPenalty.
	readableRate       = 10.0
	readabilityPenalty = 0.8

	// Busy and quiet streams scale the minimum peak distance.
	busyStreamRate     = 100.0 // messages/minute
	quietStreamRate    = 20.0  // messages/minute
	busyDistanceScale  = 0.7
	quietDistanceScale = 1.5
	minDynamicDistance = 60.0
	maxDynamicDistance = 300.0
)

// sensitivityPercentiles maps a sensitivity mode to the percentiles used for the
// adaptive message floor and intensity threshold.
var sensitivityPercentiles = map[models.SensitivityMode]struct{ message, intensity int }{
	models.SensitivityConservative: {message: 95, intensity: 95},
	models.SensitivityBalanced:     {message: 90, intensity: 90},
	models.SensitivityAggressive:   {message: 75, intensity: 75},
}

// Thresholds are the acceptance bars resolved for one timeline.
type Thresholds struct {
	MessageFloor float64
	Intensity    float64
}

// Candidate is the scored view of one interior window.
type Candidate struct {
	Index        int
	Window       models.WindowPoint
	LocalMax     bool
	FloorMet     bool
	Intensity    float64
	ContentScore float64
}

// Detector scans window timelines for peaks. It holds no state between scans
// and is safe for concurrent use.
type Detector struct {
	cfg      models.AnalysisConfig
	baseline models.Baseline
}

// NewDetector creates a Detector for one recording's config and baseline.
func NewDetector(cfg models.AnalysisConfig, baseline models.Baseline) *Detector {
	return &Detector{cfg: cfg, baseline: baseline}
}

// MovingAverage returns the centered moving average of values with the given
// half-window. The window shrinks at the boundaries.
func MovingAverage(values []int, halfWindow int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo := max(0, i-halfWindow)
		hi := min(len(values)-1, i+halfWindow)
		sum := 0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = float64(sum) / float64(hi-lo+1)
	}
	return out
}

// Intensity scores a window against its local trend and the recording baseline.
// Every ratio guards its denominator with a floor of 1.
func Intensity(w models.WindowPoint, localTrend, avgMessagesPerMinute, contentScore float64) float64 {
	count := float64(w.MessageCount)
	denom := math.Max(count, 1)

	relativeToTrend := count / math.Max(localTrend, 1)
	relativeToBaseline := count / math.Max(avgMessagesPerMinute, 1)

	emoteMultiplier := 1 + float64(w.EmoteCount)/denom
	diversityMultiplier := 1 + float64(w.UniqueUserCount)/denom
	subscriberMultiplier := 1 + float64(w.SubscriberMessageCount)/denom
	contentMultiplier := 1 + contentScore
	velocityMultiplier := 1 + math.Min(w.MessagesPerSecond/2, 1)

	readability := 1.0
	if w.MessagesPerSecond > readableRate {
		readability = readabilityPenalty
	}

	return relativeToTrend * relativeToBaseline *
		emoteMultiplier * diversityMultiplier * subscriberMultiplier *
		contentMultiplier * velocityMultiplier * readability
}

// Classify buckets a combined score (intensity + content score).
func Classify(combined float64) models.PeakClass {
	switch {
	case combined > 8:
		return models.PeakEpic
	case combined > 6:
		return models.PeakMassive
	case combined > 4:
		return models.PeakMajor
	case combined > 2:
		return models.PeakModerate
	default:
		return models.PeakMinor
	}
}

// MinimumDistance returns the spacing enforced between accepted peaks, in seconds.
// Busy streams (> 100 msg/min) shrink the base distance by 30% down to 60s;
// quiet streams (< 20 msg/min) grow it by 50% up to 300s. Neither adjustment
// crosses its bound from the other side, so a busy stream with a base below 60s
// keeps the base rather than being raised to a literal 60s floor.
func MinimumDistance(base int, avgMessagesPerMinute float64) float64 {
	d := float64(base)
	switch {
	case avgMessagesPerMinute > busyStreamRate:
		return math.Max(d*busyDistanceScale, math.Min(d, minDynamicDistance))
	case avgMessagesPerMinute < quietStreamRate:
		return math.Min(d*quietDistanceScale, math.Max(d, maxDynamicDistance))
	default:
		return d
	}
}

// MinimumDistance returns the dynamic peak spacing for this detector's recording.
func (d *Detector) MinimumDistance() float64 {
	return MinimumDistance(d.cfg.MinimumPeakDistance, d.baseline.AvgMessagesPerMinute)
}

// messageFloor resolves the message-count floor a local maximum must clear.
func (d *Detector) messageFloor() float64 {
	configured := float64(d.cfg.MessageThreshold)
	if !d.cfg.UseAdaptiveThresholds {
		return configured
	}
	p := sensitivityFor(d.cfg.SensitivityMode)
	return math.Max(d.baseline.MessageCountPercentiles.At(p.message), configured*adaptiveFloorFactor)
}

// intensityThreshold resolves the intensity bar from the interior window intensities.
func (d *Detector) intensityThreshold(intensities []float64) float64 {
	if !d.cfg.UseAdaptiveThresholds || len(intensities) == 0 {
		return fixedIntensityThreshold
	}
	sorted := make([]float64, len(intensities))
	copy(sorted, intensities)
	sort.Float64s(sorted)
	p := sensitivityFor(d.cfg.SensitivityMode)
	return math.Max(Percentile(sorted, float64(p.intensity)), fixedIntensityThreshold)
}

func sensitivityFor(mode models.SensitivityMode) struct{ message, intensity int } {
	if p, ok := sensitivityPercentiles[mode]; ok {
		return p
	}
	return sensitivityPercentiles[models.SensitivityBalanced]
}

// Score evaluates every interior window of the timeline and resolves the thresholds.
// The first and last windows are never candidates.
func (d *Detector) Score(timeline []models.WindowPoint) ([]Candidate, Thresholds) {
	th := Thresholds{MessageFloor: d.messageFloor(), Intensity: fixedIntensityThreshold}
	if len(timeline) < 3 {
		return []Candidate{}, th
	}

	counts := make([]int, len(timeline))
	for i, w := range timeline {
		counts[i] = w.MessageCount
	}
	trend := MovingAverage(counts, trendHalfWindow)

	candidates := make([]Candidate, 0, len(timeline)-2)
	intensities := make([]float64, 0, len(timeline)-2)
	for i := 1; i < len(timeline)-1; i++ {
		w := timeline[i]

		content := 0.0
		if d.cfg.ContentAnalysis {
			content = ContentScore(w.Content)
		}
		intensity := Intensity(w, trend[i], d.baseline.AvgMessagesPerMinute, content)

		candidates = append(candidates, Candidate{
			Index:        i,
			Window:       w,
			LocalMax:     counts[i] > counts[i-1] && counts[i] > counts[i+1],
			FloorMet:     float64(counts[i]) >= th.MessageFloor,
			Intensity:    intensity,
			ContentScore: content,
		})
		intensities = append(intensities, intensity)
	}

	th.Intensity = d.intensityThreshold(intensities)
	return candidates, th
}

// Accept applies the acceptance rule to one candidate. corroborated reports whether
// another window width detected a peak at the same moment.
func (d *Detector) Accept(c Candidate, th Thresholds, corroborated bool) bool {
	intense := c.Intensity > th.Intensity
	base := c.LocalMax && c.FloorMet && intense
	if !d.cfg.ContentAnalysis {
		return base
	}
	contentOK := c.ContentScore > minContentScore && c.Window.Content.SpamRatio < maxSpamRatio
	return (base && contentOK) || (corroborated && intense)
}

// Detect scans one timeline of the given width and returns its peaks in timestamp
// order. corroboration holds consolidated multi-width peaks; a window is corroborated
// when one of them starts inside it. Pass nil for a single-width scan.
//
// A peak accepted only through corroboration gives way to a stronger peak found
// within the minimum distance after it.
func (d *Detector) Detect(timeline []models.WindowPoint, width int, corroboration []models.Peak) []models.Peak {
	candidates, th := d.Score(timeline)
	minDistance := d.MinimumDistance()

	peaks := []models.Peak{}
	lastCorroboratedOnly := false
	accepted, spaced, replaced := 0, 0, 0
	for _, c := range candidates {
		corroborated := containsPeak(c.Window, corroboration)
		if !d.Accept(c, th, corroborated) {
			continue
		}
		accepted++
		corroboratedOnly := corroborated && !d.Accept(c, th, false)

		if n := len(peaks); n > 0 && c.Window.WindowStart-peaks[n-1].TimestampSeconds < minDistance {
			if lastCorroboratedOnly && c.Intensity > peaks[n-1].Intensity {
				peaks[n-1] = d.newPeak(c, width)
				lastCorroboratedOnly = corroboratedOnly
				replaced++
				continue
			}
			spaced++
			continue
		}
		peaks = append(peaks, d.newPeak(c, width))
		lastCorroboratedOnly = corroboratedOnly
	}

	logger.Debug("Detect: width=%ds windows=%d floor=%.2f intensity>%.2f accepted=%d too_close=%d replaced=%d peaks=%d min_distance=%.0fs",
		width, len(timeline), th.MessageFloor, th.Intensity, accepted, spaced, replaced, len(peaks), minDistance)

	return peaks
}

func (d *Detector) newPeak(c Candidate, width int) models.Peak {
	w := c.Window
	return models.Peak{
		TimestampSeconds:       w.WindowStart,
		WindowSize:             width,
		MessageCount:           w.MessageCount,
		EmoteCount:             w.EmoteCount,
		UniqueUserCount:        w.UniqueUserCount,
		SubscriberMessageCount: w.SubscriberMessageCount,
		Intensity:              c.Intensity,
		NormalizedIntensity:    c.Intensity / math.Max(d.baseline.AvgMessagesPerMinute, 1),
		ContentScore:           c.ContentScore,
		Classification:         Classify(c.Intensity + c.ContentScore),
		SupportingWindowSizes:  []int{width},
		Confidence:             1.0,
	}
}

// containsPeak reports whether one of the peaks starts in [start, start+size).
func containsPeak(w models.WindowPoint, peaks []models.Peak) bool {
	end := w.WindowStart + w.WindowSizeSeconds
	for _, p := range peaks {
		if p.TimestampSeconds >= w.WindowStart && p.TimestampSeconds < end {
			return true
		}
	}
	return false
}
