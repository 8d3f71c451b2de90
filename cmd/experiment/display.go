package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/chatpeaks/internal/models"
)

func printBanner(w io.Writer, title string) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func printStep(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

// printLogSummary displays the shape of the generated chat log
func printLogSummary(w io.Writer, log *models.ChatLog, cfg GeneratorConfig) {
	minutes := log.DurationSeconds / 60
	fmt.Fprintf(w, "  Messages: %s over %.0f minutes (%.1f msg/min)\n",
		humanize.Comma(int64(len(log.Events))), minutes, float64(len(log.Events))/minutes)
	fmt.Fprintf(w, "  Seed: %d, users: %d\n", cfg.Seed, cfg.Users)
	fmt.Fprintln(w, "  Injected bursts:")
	for _, b := range cfg.Bursts {
		fmt.Fprintf(w, "    %s-%s  x%.1f\n", clock(b.Start), clock(b.End), b.Multiplier)
	}
}

// printSweep displays one row per analysis config
func printSweep(w io.Writer, rows []SweepRow, bursts int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  MODE\tADAPTIVE\tMULTI\tPEAKS\tBURSTS\tFALSE\tPRECISION\tTOP")
	for _, r := range rows {
		top := make([]string, len(r.TopTimestamps))
		for i, ts := range r.TopTimestamps {
			top[i] = clock(ts)
		}
		fmt.Fprintf(tw, "  %s\t%v\t%v\t%d\t%d/%d\t%d\t%.0f%%\t%s\n",
			r.Mode, r.Adaptive, r.MultiWindow, r.Peaks, r.BurstsFound, bursts, r.FalsePeaks,
			r.Precision()*100, strings.Join(top, " "))
	}
	return tw.Flush()
}

// printRecommendation displays the best scoring configuration
func printRecommendation(w io.Writer, best SweepRow, bursts int) {
	fmt.Fprintln(w, "\nRECOMMENDED ANALYSIS SETTINGS:")
	fmt.Fprintf(w, "  sensitivity_mode: %s\n", best.Mode)
	fmt.Fprintf(w, "  use_adaptive_thresholds: %v\n", best.Adaptive)
	fmt.Fprintf(w, "  multi_window_analysis: %v\n", best.MultiWindow)
	fmt.Fprintf(w, "  Finds %d of %d bursts with %d false peaks\n", best.BurstsFound, bursts, best.FalsePeaks)
}

func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
}
