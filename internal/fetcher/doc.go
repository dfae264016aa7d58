// Package fetcher downloads crawl pages over HTTP(S).
//
// A Fetcher sends every request with the configured headers, user agent
// and per-scheme proxy. Server errors (5xx) are retried up to a fixed
// budget. Every other failure, and a server error that outlasts the budget,
// yields an empty body. Fetch never returns a Go error; the failure is
// described by Result.Err so the crawl can continue.
//
// Bodies are decompressed according to Content-Encoding (gzip, deflate, br)
// and validated as UTF-8. A body that is not valid UTF-8 is returned as the
// raw bytes with Result.Decoded set to false.
package fetcher
