package main

import (
	"sort"

	"github.com/rewired-gh/chatpeaks/internal/analyzer"
	"github.com/rewired-gh/chatpeaks/internal/models"
	"golang.org/x/sync/errgroup"
)

// sweepConfigs returns every sensitivity, adaptive and multi-window combination.
func sweepConfigs() []models.AnalysisConfig {
	var configs []models.AnalysisConfig
	for _, mode := range []models.SensitivityMode{
		models.SensitivityConservative,
		models.SensitivityBalanced,
		models.SensitivityAggressive,
	} {
		for _, adaptive := range []bool{true, false} {
			for _, multi := range []bool{false, true} {
				cfg := models.DefaultAnalysisConfig()
				cfg.SensitivityMode = mode
				cfg.UseAdaptiveThresholds = adaptive
				cfg.MultiWindowAnalysis = multi
				configs = append(configs, cfg)
			}
		}
	}
	return configs
}

// runSweep analyzes log once per config, concurrently, and scores each run
// against the injected bursts. Rows come back in config order.
func runSweep(log *models.ChatLog, bursts []Burst, configs []models.AnalysisConfig) ([]SweepRow, error) {
	rows := make([]SweepRow, len(configs))
	var g errgroup.Group
	for i, cfg := range configs {
		g.Go(func() error {
			report, err := analyzer.Run(log, cfg)
			if err != nil {
				return err
			}
			rows[i] = scoreRun(cfg, report.Peaks, bursts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func scoreRun(cfg models.AnalysisConfig, peaks []models.Peak, bursts []Burst) SweepRow {
	row := SweepRow{
		Mode:        cfg.SensitivityMode,
		Adaptive:    cfg.UseAdaptiveThresholds,
		MultiWindow: cfg.MultiWindowAnalysis,
		Peaks:       len(peaks),
	}
	slack := float64(cfg.PeakWindowSize)

	found := make([]bool, len(bursts))
	for _, p := range peaks {
		inBurst := false
		for i, b := range bursts {
			if b.Contains(p.TimestampSeconds, slack) {
				found[i] = true
				inBurst = true
			}
		}
		if !inBurst {
			row.FalsePeaks++
		}
	}
	for _, f := range found {
		if f {
			row.BurstsFound++
		}
	}

	for _, p := range peaks[:min(len(peaks), len(bursts))] {
		row.TopTimestamps = append(row.TopTimestamps, p.TimestampSeconds)
	}
	return row
}

// bestRow ranks rows by bursts found, then precision, then fewer peaks.
func bestRow(rows []SweepRow) SweepRow {
	ranked := append([]SweepRow(nil), rows...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.BurstsFound != b.BurstsFound {
			return a.BurstsFound > b.BurstsFound
		}
		if a.Precision() != b.Precision() {
			return a.Precision() > b.Precision()
		}
		return a.Peaks < b.Peaks
	})
	return ranked[0]
}
