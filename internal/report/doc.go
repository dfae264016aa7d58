// Package report renders crawl reports.
//
// Three writers implement Writer:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for other tools
//   - MarkdownWriter: tables and a status chart for sharing
//
// Report data lives in the model package; this package only formats it.
package report
