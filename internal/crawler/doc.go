// Package crawler drives a bounded-depth crawl of a single site.
//
// # Architecture
//
// A Spider owns one crawl at a time. For every URL taken from the frontier
// it consults the robots gate, waits on the per-domain throttle, fetches
// the page and feeds accepted links back into the frontier:
//
//	frontier -> robots gate -> throttle -> fetcher -> link extraction -> frontier
//
// The crawl ends when the frontier is empty, when the configured number of
// fetches has been made, or when the context is cancelled. All crawl state
// (seen set, queue, domain clock) belongs to one Crawl call.
//
// # Traversal
//
// The queue is last-in first-out by default, so the crawl goes deep before
// it goes wide. Links are only extracted from pages shallower than the
// maximum depth. Links on other hosts are recorded in the seen set but
// never fetched.
//
// # Batches
//
// Batch crawls several seeds concurrently, one fresh Spider per seed.
//
// # Usage
//
//	spider, err := crawler.NewSpider(
//		crawler.WithMaxDepth(2),
//		crawler.WithLinkPattern(`/(index|view)`),
//	)
//	report, err := spider.Crawl(ctx, "http://example.com/")
package crawler
