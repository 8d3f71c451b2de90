package analyzer

import (
	"sort"
	"testing"

	"github.com/rewired-gh/chatpeaks/internal/models"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]int{3, 6, 9, 0}, 1)
	want := []float64{4.5, 6, 5, 4.5}
	for i := range want {
		if !approxEqual(got[i], want[i]) {
			t.Errorf("MovingAverage[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := MovingAverage(nil, 1); len(got) != 0 {
		t.Errorf("MovingAverage(nil) = %v, want empty", got)
	}
}

func TestIntensity(t *testing.T) {
	w := models.WindowPoint{
		MessageCount:           10,
		EmoteCount:             5,
		UniqueUserCount:        10,
		SubscriberMessageCount: 0,
		MessagesPerSecond:      1,
	}
	// (10/5) × (10/10) × 1.5 × 2 × 1 × 1 × 1.5 × 1
	if got := Intensity(w, 5, 10, 0); !approxEqual(got, 9) {
		t.Errorf("Intensity = %v, want 9", got)
	}
	// content multiplier and fast-chat penalty
	w.MessagesPerSecond = 12
	if got := Intensity(w, 5, 10, 1); !approxEqual(got, 2*1.5*2*2*2*0.8) {
		t.Errorf("Intensity = %v, want %v", got, 2*1.5*2*2*2*0.8)
	}
	// empty window with zero baseline must not divide by zero
	if got := Intensity(models.WindowPoint{}, 0, 0, 0); got != 0 {
		t.Errorf("Intensity of empty window = %v, want 0", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		combined float64
		want     models.PeakClass
	}{
		{0, models.PeakMinor},
		{2, models.PeakMinor},
		{2.01, models.PeakModerate},
		{4, models.PeakModerate},
		{4.5, models.PeakMajor},
		{6.5, models.PeakMassive},
		{8, models.PeakMassive},
		{8.01, models.PeakEpic},
	}
	for _, tt := range tests {
		if got := Classify(tt.combined); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.combined, got, tt.want)
		}
	}
}

func TestMinimumDistance(t *testing.T) {
	tests := []struct {
		name string
		base int
		avg  float64
		want float64
	}{
		{"normal stream keeps base", 120, 50, 120},
		{"busy stream shrinks", 120, 150, 84},
		{"busy stream floors at 60", 60, 150, 60},
		{"busy stream below floor stays", 30, 150, 30},
		{"quiet stream grows", 120, 10, 180},
		{"quiet stream caps at 300", 250, 10, 300},
		{"quiet stream above cap stays", 400, 10, 400},
	}
	for _, tt := range tests {
		if got := MinimumDistance(tt.base, tt.avg); !approxEqual(got, tt.want) {
			t.Errorf("%s: MinimumDistance(%d, %v) = %v, want %v", tt.name, tt.base, tt.avg, got, tt.want)
		}
	}
}

func TestDetector_Thresholds(t *testing.T) {
	baseline := models.Baseline{
		AvgMessagesPerMinute:    20,
		MessageCountPercentiles: models.Percentiles{P50: 10, P75: 20, P90: 40, P95: 80},
	}
	tests := []struct {
		name      string
		mode      models.SensitivityMode
		adaptive  bool
		threshold int
		wantFloor float64
	}{
		{"fixed", models.SensitivityBalanced, false, 50, 50},
		{"balanced uses p90", models.SensitivityBalanced, true, 50, 40},
		{"conservative uses p95", models.SensitivityConservative, true, 50, 80},
		{"aggressive uses p75", models.SensitivityAggressive, true, 50, 25},
		{"floor never below half the configured threshold", models.SensitivityAggressive, true, 100, 50},
	}
	timeline := []models.WindowPoint{{MessageCount: 1}, {MessageCount: 5}, {MessageCount: 1}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultAnalysisConfig()
			cfg.SensitivityMode = tt.mode
			cfg.UseAdaptiveThresholds = tt.adaptive
			cfg.MessageThreshold = tt.threshold

			_, th := NewDetector(cfg, baseline).Score(timeline)
			if th.MessageFloor != tt.wantFloor {
				t.Errorf("MessageFloor = %v, want %v", th.MessageFloor, tt.wantFloor)
			}
			if th.Intensity < fixedIntensityThreshold {
				t.Errorf("Intensity threshold %v below floor", th.Intensity)
			}
		})
	}
}

func TestDetector_ScoreSkipsEdges(t *testing.T) {
	cfg := scenarioConfig()
	timeline := []models.WindowPoint{{MessageCount: 90}, {MessageCount: 1}, {MessageCount: 90}}
	candidates, _ := NewDetector(cfg, models.Baseline{}).Score(timeline)
	if len(candidates) != 1 || candidates[0].Index != 1 {
		t.Fatalf("expected only the interior window, got %+v", candidates)
	}
	if candidates[0].LocalMax {
		t.Error("a valley must not be a local maximum")
	}

	short, _ := NewDetector(cfg, models.Baseline{}).Score(timeline[:2])
	if len(short) != 0 {
		t.Errorf("two windows have no interior, got %d candidates", len(short))
	}
}

func TestDetector_Accept(t *testing.T) {
	th := Thresholds{MessageFloor: 10, Intensity: 2}
	qualifying := Candidate{
		LocalMax:     true,
		FloorMet:     true,
		Intensity:    5,
		ContentScore: 1,
	}
	tests := []struct {
		name         string
		content      bool
		mutate       func(c *Candidate)
		corroborated bool
		want         bool
	}{
		{"qualifying", true, func(c *Candidate) {}, false, true},
		{"not a local max", true, func(c *Candidate) { c.LocalMax = false }, false, false},
		{"below floor", true, func(c *Candidate) { c.FloorMet = false }, false, false},
		{"too weak", true, func(c *Candidate) { c.Intensity = 2 }, false, false},
		{"dull content", true, func(c *Candidate) { c.ContentScore = 0.05 }, false, false},
		{"spammy", true, func(c *Candidate) { c.Window.Content.SpamRatio = 0.5 }, false, false},
		{"corroboration overrides local shape", true, func(c *Candidate) { c.LocalMax = false; c.ContentScore = 0 }, true, true},
		{"corroboration still needs intensity", true, func(c *Candidate) { c.Intensity = 1 }, true, false},
		{"content off ignores content", false, func(c *Candidate) { c.ContentScore = 0; c.Window.Content.SpamRatio = 1 }, false, true},
		{"content off ignores corroboration", false, func(c *Candidate) { c.LocalMax = false }, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig()
			cfg.ContentAnalysis = tt.content
			c := qualifying
			tt.mutate(&c)
			if got := NewDetector(cfg, models.Baseline{}).Accept(c, th, tt.corroborated); got != tt.want {
				t.Errorf("Accept = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetector_MinimumSpacing(t *testing.T) {
	log := alternatingLog(1800)
	cfg := scenarioConfig()
	cfg.MessageThreshold = 10
	cfg.ContentAnalysis = false

	timeline, err := BuildTimeline(log, 30, nil, nil)
	if err != nil {
		t.Fatalf("BuildTimeline failed: %v", err)
	}
	d := NewDetector(cfg, EstimateBaseline(log))
	peaks := d.Detect(timeline, 30, nil)
	if len(peaks) < 2 {
		t.Fatalf("expected several peaks, got %d", len(peaks))
	}

	sort.Slice(peaks, func(i, j int) bool { return peaks[i].TimestampSeconds < peaks[j].TimestampSeconds })
	minDistance := d.MinimumDistance()
	for i := 1; i < len(peaks); i++ {
		if gap := peaks[i].TimestampSeconds - peaks[i-1].TimestampSeconds; gap < minDistance {
			t.Errorf("peaks at %v and %v are %vs apart, minimum is %v",
				peaks[i-1].TimestampSeconds, peaks[i].TimestampSeconds, gap, minDistance)
		}
	}
	// every odd window is a local maximum; spacing keeps every other one
	if peaks[0].TimestampSeconds != 30 || peaks[1].TimestampSeconds != 150 {
		t.Errorf("first peaks at %v and %v, want 30 and 150", peaks[0].TimestampSeconds, peaks[1].TimestampSeconds)
	}
}

func TestDetector_Corroboration(t *testing.T) {
	log := rampLog()
	cfg := scenarioConfig()
	cfg.ContentAnalysis = true
	timeline, err := BuildTimeline(log, 30, cfg.ExcitementKeywords, nil)
	if err != nil {
		t.Fatalf("BuildTimeline failed: %v", err)
	}
	d := NewDetector(cfg, EstimateBaseline(log))

	tests := []struct {
		name          string
		corroboration []models.Peak
	}{
		{"none", nil},
		// 300 lies just past the shoulder window [270, 300)
		{"next window only", []models.Peak{{TimestampSeconds: 300}}},
		{"shoulder gives way to a stronger maximum", []models.Peak{{TimestampSeconds: 270}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks := d.Detect(timeline, 30, tt.corroboration)
			if len(peaks) != 1 || peaks[0].TimestampSeconds != 300 || peaks[0].MessageCount != 100 {
				t.Errorf("expected one peak at 300 with 100 messages, got %+v", peaks)
			}
		})
	}
}

func TestDetector_PeakFields(t *testing.T) {
	log := burstLog(distinctHype)
	cfg := scenarioConfig()
	timeline, err := BuildTimeline(log, 30, cfg.ExcitementKeywords, nil)
	if err != nil {
		t.Fatalf("BuildTimeline failed: %v", err)
	}
	baseline := EstimateBaseline(log)
	peaks := NewDetector(cfg, baseline).Detect(timeline, 30, nil)
	if len(peaks) != 1 {
		t.Fatalf("expected 1 peak, got %d", len(peaks))
	}
	p := peaks[0]
	if p.MessageCount != 103 || p.UniqueUserCount != 103 || p.WindowSize != 30 {
		t.Errorf("unexpected peak aggregates: %+v", p)
	}
	if p.ContentScore <= minContentScore {
		t.Errorf("ContentScore = %v, want > %v", p.ContentScore, minContentScore)
	}
	if !approxEqual(p.NormalizedIntensity, p.Intensity/baseline.AvgMessagesPerMinute) {
		t.Errorf("NormalizedIntensity = %v, want %v", p.NormalizedIntensity, p.Intensity/baseline.AvgMessagesPerMinute)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("peak is invalid: %v", err)
	}
}
