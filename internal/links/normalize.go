package links

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Filter decides whether a raw href is a crawl candidate.
// The zero value accepts every link.
type Filter struct {
	pattern *regexp.Regexp
	source  string
}

// NewFilter compiles a link-acceptance pattern.
//
// The pattern must match at the start of the raw href: "/view" accepts
// "/view/1" but not "http://example.com/view/1". An empty pattern accepts
// every link.
func NewFilter(pattern string) (*Filter, error) {
	if pattern == "" {
		return &Filter{}, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid link pattern %q: %w", pattern, err)
	}
	return &Filter{pattern: re, source: pattern}, nil
}

// Accept reports whether href passes the filter.
func (f *Filter) Accept(href string) bool {
	if f == nil || f.pattern == nil {
		return true
	}
	return f.pattern.MatchString(href)
}

// String returns the pattern as configured.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Normalize strips the fragment from link and resolves it against seed.
//
// Relative links are always resolved against the seed URL, not against the
// page they were found on.
func Normalize(seed, link string) (string, error) {
	base, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("parse seed %q: %w", seed, err)
	}

	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	ref.Fragment = ""
	ref.RawFragment = ""

	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), nil
}

// Domain returns the host:port component of rawURL, or "" if it cannot be
// parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// SameDomain reports whether a and b share a host:port component.
// Schemes are ignored and hosts compare case-insensitively. URLs that fail
// to parse are never on the same domain.
func SameDomain(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host)
}
