package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/chatpeaks/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:             "a1",
		RecordingID:    "12345",
		RecordingTitle: "Grand Final",
		Peaks: []models.Peak{
			{TimestampSeconds: 3723, WindowSize: 30, MessageCount: 1500, UniqueUserCount: 900, Intensity: 8.25,
				Classification: models.PeakEpic, MultiWindowSupported: true, SupportingWindowSizes: []int{30, 60}, Confidence: 2.0 / 3},
			{TimestampSeconds: 65, WindowSize: 30, MessageCount: 80, UniqueUserCount: 40, Intensity: 2.5,
				Classification: models.PeakModerate},
		},
		SummaryStats: models.SummaryStats{TotalMessages: 12345, UniqueUsers: 678},
		AnalyzedAt:   time.Now().Add(-time.Hour),
	}
}

func TestWriteResult_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResult(&buf, sampleResult(), "text"); err != nil {
		t.Fatalf("writeResult failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Grand Final (12345)",
		"12,345 messages from 678 chatters",
		"1 hour ago",
		"1:02:03",
		"30s,60s (67%)",
		"0:01:05",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResult_NoPeaks(t *testing.T) {
	r := sampleResult()
	r.Peaks = nil
	var buf bytes.Buffer
	if err := writeResult(&buf, r, "text"); err != nil {
		t.Fatalf("writeResult failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No peaks detected.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteResult_YAMLKeepsJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResult(&buf, sampleResult(), "yaml"); err != nil {
		t.Fatalf("writeResult failed: %v", err)
	}

	var decoded struct {
		RecordingID string `yaml:"recording_id"`
		Peaks       []struct {
			TimestampSeconds float64 `yaml:"timestamp_seconds"`
		} `yaml:"peaks"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid yaml: %v\n%s", err, buf.String())
	}
	if decoded.RecordingID != "12345" {
		t.Errorf("recording_id = %q, want the string 12345", decoded.RecordingID)
	}
	if len(decoded.Peaks) != 2 || decoded.Peaks[0].TimestampSeconds != 3723 {
		t.Errorf("unexpected peaks: %+v", decoded.Peaks)
	}
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	if err := writeResult(&bytes.Buffer{}, sampleResult(), "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummaries(&buf, []models.AnalysisSummary{sampleResult().Summary()}); err != nil {
		t.Fatalf("writeSummaries failed: %v", err)
	}
	if !strings.Contains(buf.String(), "12345") || !strings.Contains(buf.String(), "12,345") {
		t.Errorf("unexpected listing:\n%s", buf.String())
	}

	buf.Reset()
	_ = writeSummaries(&buf, nil)
	if !strings.Contains(buf.String(), "No analyses stored.") {
		t.Errorf("unexpected empty listing:\n%s", buf.String())
	}
}

func TestAnalysisOverrides(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "analyze"}
		c.Flags().String("sensitivity", "", "")
		c.Flags().Int("threshold", 0, "")
		c.Flags().Bool("multi-window", false, "")
		return c
	}

	c := newCmd()
	if err := c.Flags().Parse([]string{"--sensitivity", "aggressive", "--threshold", "80", "--multi-window"}); err != nil {
		t.Fatal(err)
	}
	got, err := analysisOverrides(c, models.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("analysisOverrides failed: %v", err)
	}
	if got.SensitivityMode != models.SensitivityAggressive || got.MessageThreshold != 80 || !got.MultiWindowAnalysis {
		t.Errorf("overrides not applied: %+v", got)
	}

	c = newCmd()
	_ = c.Flags().Parse(nil)
	got, _ = analysisOverrides(c, models.DefaultAnalysisConfig())
	if got.MessageThreshold != 50 || got.SensitivityMode != models.SensitivityBalanced {
		t.Errorf("unset flags should keep the base config: %+v", got)
	}

	c = newCmd()
	_ = c.Flags().Parse([]string{"--sensitivity", "reckless"})
	if _, err := analysisOverrides(c, models.DefaultAnalysisConfig()); err == nil {
		t.Error("expected a validation error for an unknown sensitivity")
	}
}
