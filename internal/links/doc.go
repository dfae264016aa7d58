// Package links extracts anchor targets from HTML and turns them into
// absolute crawl candidates.
//
// # Extraction
//
// The default extractor is a lenient, case-insensitive pattern match over
// the raw markup (see ExtractLinks). It is intentionally not a full HTML
// parse: unusual markup may be missed. Callers that want a real parser can
// opt into DOMExtractor, which is built on golang.org/x/net/html and goquery.
//
// # Normalization
//
// Normalize strips the fragment from a raw href and resolves it against the
// seed URL. No other canonicalization is done: query parameter order,
// trailing slashes and case are preserved, so equivalent URLs that are
// spelled differently stay distinct.
package links
