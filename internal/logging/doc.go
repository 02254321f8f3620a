// Package logging assembles structured slog loggers and formatting helpers used
// across genomefetch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the run ID, step, and accession. Logs go to stderr by default so
// stdout stays free for the run report.
package logging
