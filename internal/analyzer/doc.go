// Package analyzer turns a recorded chat log into a small, ranked set of interaction peaks.
//
// The engine is a pure batch computation over one immutable log:
//
//	log ─► BuildTimelines (per width) ─► Detector (per width) ─► MergePeaks ─► Detector (primary, corroborated)
//	   └─► EstimateBaseline            └─► SummarizeChat
//
// Each window's intensity is the product of relative volume and engagement factors:
//
//	intensity = (count/localTrend) × (count/avgPerMinute) × emote × diversity × subscriber × content × velocity × readability
//
// Relative volume compares the window against its immediate neighbours (local trend)
// and against the whole recording (baseline). The remaining factors reward emote-heavy,
// diverse, subscriber-driven and textually excited bursts, and penalize chat that moves
// too fast to be read.
//
// Thresholds adapt to the recording: the sensitivity mode picks percentiles of the
// recording's own per-minute activity and window intensities, so quiet and busy streams
// surface proportionally significant moments under the same settings.
//
// Use Run to execute the full pipeline.
package analyzer
