// Package models defines the core domain entities for chatpeaks.
// These models represent recorded chat logs, per-window aggregates, detected
// interaction peaks and the analysis results built from them.
// Input models include built-in validation so malformed logs are rejected
// before they reach the analysis engine.
//
// Terminology:
//   - Recording: a long-form video (a VOD) with a replayable chat log.
//   - Window: a fixed-width slice of the recording timeline over which chat is aggregated.
//   - Peak: a window flagged as an unusually high-engagement moment.
package models
