package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/chatpeaks/internal/models"
	"gopkg.in/yaml.v3"
)

// writeResult renders an analysis as text, json or yaml.
func writeResult(w io.Writer, result *models.AnalysisResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		return writeYAML(w, result)
	case "text", "":
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// writeYAML goes through JSON so keys keep their JSON names and field order.
func writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	clearStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow style yaml.v3 keeps from the JSON input.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func writeText(w io.Writer, result *models.AnalysisResult) error {
	stats := result.SummaryStats
	fmt.Fprintf(w, "%s (%s)\n", result.RecordingTitle, result.RecordingID)
	fmt.Fprintf(w, "Analyzed %s: %s messages from %s chatters, %.1f msg/min\n",
		humanize.Time(result.AnalyzedAt),
		humanize.Comma(int64(stats.TotalMessages)),
		humanize.Comma(int64(stats.UniqueUsers)),
		stats.AvgMessagesPerMinute,
	)
	fmt.Fprintf(w, "Excitement %.1f/10, engagement %.1f/10\n\n", stats.ExcitementLevel, stats.EngagementQuality)

	if len(result.Peaks) == 0 {
		fmt.Fprintln(w, "No peaks detected.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTIME\tCLASS\tMSGS\tUSERS\tINTENSITY\tWINDOWS")
	for i, p := range result.Peaks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.2f\t%s\n",
			i+1,
			formatOffset(p.TimestampSeconds),
			p.Classification,
			humanize.Comma(int64(p.MessageCount)),
			p.UniqueUserCount,
			p.Intensity,
			formatWindows(p),
		)
	}
	return tw.Flush()
}

// writeSummaries renders the analysis listing as a table.
func writeSummaries(w io.Writer, summaries []models.AnalysisSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No analyses stored.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDING\tTITLE\tPEAKS\tMESSAGES\tANALYZED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			s.RecordingID,
			s.RecordingTitle,
			s.PeakCount,
			humanize.Comma(int64(s.TotalMessages)),
			humanize.Time(s.AnalyzedAt),
		)
	}
	return tw.Flush()
}

func formatOffset(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func formatWindows(p models.Peak) string {
	if len(p.SupportingWindowSizes) == 0 {
		return fmt.Sprintf("%ds", p.WindowSize)
	}
	parts := make([]string, len(p.SupportingWindowSizes))
	for i, w := range p.SupportingWindowSizes {
		parts[i] = fmt.Sprintf("%ds", w)
	}
	return fmt.Sprintf("%s (%.0f%%)", strings.Join(parts, ","), p.Confidence*100)
}
