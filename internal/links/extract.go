package links

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor pulls raw href values out of a page body.
type Extractor interface {
	// Extract returns the href values in document order. Values are
	// returned as written in the markup, without resolution.
	Extract(body string) []string

	// Name identifies the extractor in logs and configuration.
	Name() string
}

// Extractor names accepted by NewExtractor.
const (
	ExtractorRegex = "regex"
	ExtractorDOM   = "dom"
)

// anchorHrefRegex matches the href attribute of anchor tags.
// The value is captured lazily up to the first closing quote of either kind.
var anchorHrefRegex = regexp.MustCompile(`(?i)<a[^>]+href=["'](.*?)["']`)

// ExtractLinks scans html for anchor href values using a lenient pattern.
func ExtractLinks(html string) []string {
	matches := anchorHrefRegex.FindAllStringSubmatch(html, -1)
	hrefs := make([]string, 0, len(matches))
	for _, m := range matches {
		hrefs = append(hrefs, m[1])
	}
	return hrefs
}

// RegexExtractor is the default pattern-based Extractor.
type RegexExtractor struct{}

// Extract implements Extractor.
func (RegexExtractor) Extract(body string) []string {
	return ExtractLinks(body)
}

// Name implements Extractor.
func (RegexExtractor) Name() string {
	return ExtractorRegex
}

// DOMExtractor parses the body as HTML and reads every a[href].
// Entities in attribute values are decoded by the parser, unlike RegexExtractor.
type DOMExtractor struct{}

// Extract implements Extractor. Unparseable input yields no links.
func (DOMExtractor) Extract(body string) []string {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	doc := goquery.NewDocumentFromNode(root)
	hrefs := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// Name implements Extractor.
func (DOMExtractor) Name() string {
	return ExtractorDOM
}

// NewExtractor returns the extractor registered under name.
// An empty name selects the regex extractor.
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ExtractorRegex:
		return RegexExtractor{}, nil
	case ExtractorDOM:
		return DOMExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown link extractor %q", name)
	}
}
