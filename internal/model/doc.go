// Package model defines the data structures shared by the crawler, the
// report writers and the crawl archive.
//
// This package contains the following main types:
//   - CrawlReport: the outcome of one crawl run
//   - PageResult: one fetched page within a run
//   - SeenURL: a URL recorded in the seen set with its first depth
//   - RunSummary: an archived run as listed by the history command
//
// The models are serializable to JSON for report output and database
// storage.
package model
