// Package main provides the entry point for the linkcrawler CLI.
//
// linkcrawler is a polite, bounded-depth web crawler. It follows links that
// match a pattern within the seed's domain, honours robots.txt, spaces
// requests to the same domain and reports what it fetched.
//
// Usage:
//
//	linkcrawler crawl <seed-url>
//	linkcrawler crawl -r '/(index|view)' -d 2 https://example.com/
//	linkcrawler history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
