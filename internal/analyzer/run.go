package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
	"golang.org/x/sync/errgroup"
)

// Report is the engine output for one chat log.
type Report struct {
	Timelines map[int][]models.WindowPoint // Every analyzed width, always including the primary
	Primary   []models.WindowPoint
	Peaks     []models.Peak // Combined score descending
	Baseline  models.Baseline
	Stats     models.SummaryStats
}

// Run analyzes a chat log with the given config. The config is assumed to be
// within bounds; only the log is validated. Run is deterministic and keeps no
// state between calls.
func Run(log *models.ChatLog, cfg models.AnalysisConfig) (*Report, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}

	widths := cfg.AnalyzedWindowSizes()
	timelines, err := BuildTimelines(log, widths, cfg.ExcitementKeywords, cfg.DisallowedTerms)
	if err != nil {
		return nil, err
	}

	baseline := EstimateBaseline(log)
	detector := NewDetector(cfg, baseline)
	primary := timelines[cfg.PeakWindowSize]

	var peaks []models.Peak
	if len(widths) == 1 {
		peaks = detector.Detect(primary, cfg.PeakWindowSize, nil)
	} else {
		peaks, err = detectAcrossWidths(detector, timelines, widths, cfg.PeakWindowSize)
		if err != nil {
			return nil, err
		}
	}
	SortPeaks(peaks)

	logger.Debug("Run: recording=%s events=%d widths=%v avg=%.2f msg/min peaks=%d",
		log.RecordingID, len(log.Events), widths, baseline.AvgMessagesPerMinute, len(peaks))

	return &Report{
		Timelines: timelines,
		Primary:   primary,
		Peaks:     peaks,
		Baseline:  baseline,
		Stats:     SummarizeChat(log, cfg.ExcitementKeywords, cfg.DisallowedTerms),
	}, nil
}

// detectAcrossWidths runs the two-stage multi-width scan. Stage one detects peaks on
// every width independently and merges them. Stage two rescans the primary width
// with the multi-width groups as corroboration and annotates the final peaks with
// the support of the group each one falls into.
func detectAcrossWidths(d *Detector, timelines map[int][]models.WindowPoint, widths []int, primary int) ([]models.Peak, error) {
	perWidth := make([][]models.Peak, len(widths))
	var g errgroup.Group
	for i, w := range widths {
		g.Go(func() error {
			timeline, ok := timelines[w]
			if !ok {
				return fmt.Errorf("no timeline for width %ds", w)
			}
			perWidth[i] = d.Detect(timeline, w, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to detect peaks: %w", err)
	}

	var all []models.Peak
	for _, ps := range perWidth {
		all = append(all, ps...)
	}
	groups := mergeGroups(all)

	corroboration := []models.Peak{}
	for _, grp := range groups {
		if grp.supported() {
			corroboration = append(corroboration, grp.consolidate(len(widths)))
		}
	}

	peaks := d.Detect(timelines[primary], primary, corroboration)
	for i := range peaks {
		annotate(&peaks[i], groups, len(widths), float64(primary))
	}

	logger.Debug("detectAcrossWidths: stage1=%d groups=%d corroborating=%d final=%d",
		len(all), len(groups), len(corroboration), len(peaks))

	return peaks, nil
}

// annotate copies multi-width support onto a primary-width peak. A group that holds
// the same detection wins; otherwise the nearest group representative within
// tolerance is used. A peak with no group counts only its own width.
func annotate(p *models.Peak, groups []peakGroup, totalWidths int, tolerance float64) {
	match := -1
	for i, g := range groups {
		if g.contains(p.WindowSize, p.TimestampSeconds) {
			match = i
			break
		}
	}
	if match < 0 {
		best := math.Inf(1)
		for i, g := range groups {
			dist := math.Abs(g.members[g.rep].TimestampSeconds - p.TimestampSeconds)
			if dist <= tolerance && dist < best {
				best, match = dist, i
			}
		}
	}

	if match < 0 {
		p.MultiWindowSupported = false
		p.SupportingWindowSizes = []int{p.WindowSize}
		p.Confidence = 1 / float64(max(totalWidths, 1))
		return
	}
	g := groups[match]
	p.MultiWindowSupported = g.supported()
	p.SupportingWindowSizes = g.widths()
	p.Confidence = g.confidence(totalWidths)
}

// SortPeaks orders peaks by combined score, highest first. Ties go to the earlier peak.
func SortPeaks(peaks []models.Peak) {
	sort.SliceStable(peaks, func(i, j int) bool {
		si, sj := peaks[i].CombinedScore(), peaks[j].CombinedScore()
		if si != sj {
			return si > sj
		}
		return peaks[i].TimestampSeconds < peaks[j].TimestampSeconds
	})
}
