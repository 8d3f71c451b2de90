package main

import "github.com/rewired-gh/chatpeaks/internal/models"

// Burst is an interval of artificially raised chat activity.
type Burst struct {
	Start      float64
	End        float64
	Multiplier float64
}

// Contains reports whether ts lies within slack seconds of the burst.
func (b Burst) Contains(ts, slack float64) bool {
	return ts >= b.Start-slack && ts < b.End+slack
}

// GeneratorConfig shapes a synthetic chat log.
type GeneratorConfig struct {
	Seed            int64
	DurationSeconds int
	IntervalSeconds int // Messages are generated per interval
	BaseRate        int // Messages per interval before variance
	Users           int
	Bursts          []Burst
}

// SweepRow is the outcome of one analysis config over the synthetic log.
type SweepRow struct {
	Mode          models.SensitivityMode
	Adaptive      bool
	MultiWindow   bool
	Peaks         int
	BurstsFound   int
	FalsePeaks    int
	TopTimestamps []float64
}

// Precision is the share of peaks that fall inside an injected burst.
func (r SweepRow) Precision() float64 {
	if r.Peaks == 0 {
		return 0
	}
	return float64(r.Peaks-r.FalsePeaks) / float64(r.Peaks)
}
