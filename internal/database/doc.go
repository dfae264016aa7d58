// Package database archives crawl reports in SQLite (modernc.org/sqlite,
// no cgo).
//
// Each finished crawl becomes one row in runs, holding its totals and the
// full report as JSON, plus one row per fetch in pages so a URL can be
// traced across runs.
package database
