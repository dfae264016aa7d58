// Package robots loads a site's robots.txt once per crawl and answers
// allow/deny questions for every URL the crawl wants to fetch.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/linkcrawler/internal/fetcher"
)

// maxRobotsSize caps how much of a robots.txt file is read.
const maxRobotsSize = 512 * 1024

// ErrInvalidSeed is returned by Load when the seed URL has no scheme or host.
var ErrInvalidSeed = errors.New("robots: seed URL must be absolute")

// Status values describe how the active policy was obtained.
const (
	StatusNotLoaded      = "not loaded"
	StatusParsed         = "parsed"
	StatusMissing        = "missing (allow all)"
	StatusUnreachable    = "unreachable (allow all)"
	StatusServerError    = "server error (allow all)"
	StatusUnparseable    = "unparseable (allow all)"
	StatusAccessDenied   = "access denied (disallow all)"
	statusClientErrorFmt = "status %d (allow all)"
)

// Gate evaluates every crawl URL against the seed site's robots.txt.
//
// The policy is fetched once by Load and never refreshed. It is applied to
// every URL passed to IsAllowed, including URLs on other hosts.
type Gate struct {
	client    *http.Client
	userAgent string

	mu       sync.RWMutex
	data     *robotstxt.RobotsData
	denyAll  bool
	status   string
	location string
}

// NewGate creates a gate that fetches robots.txt with client.
// userAgent is sent as the User-Agent of the robots.txt request.
func NewGate(client *http.Client, userAgent string) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gate{
		client:    client,
		userAgent: userAgent,
		status:    StatusNotLoaded,
	}
}

// Load fetches and parses <scheme>://<host>/robots.txt for seed.
//
// Network failures, missing files, other 4xx responses, 5xx responses and
// unparseable content all leave the gate permissive. 401 and 403 responses
// deny everything. Load only fails when seed itself cannot be parsed.
func (g *Gate) Load(ctx context.Context, seed string) error {
	u, err := url.Parse(seed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	location := u.Scheme + "://" + u.Host + "/robots.txt"

	data, denyAll, status := g.fetch(ctx, location)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.data = data
	g.denyAll = denyAll
	g.status = status
	g.location = location
	return nil
}

func (g *Gate) fetch(ctx context.Context, location string) (*robotstxt.RobotsData, bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, false, StatusUnreachable
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, false, StatusUnreachable
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, true, StatusAccessDenied
	case code == http.StatusNotFound:
		return nil, false, StatusMissing
	case code >= 400 && code < 500:
		return nil, false, fmt.Sprintf(statusClientErrorFmt, code)
	case code >= 500:
		return nil, false, StatusServerError
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, false, StatusUnreachable
	}
	// Clients that set Accept-Encoding themselves get the encoded bytes.
	body, err := fetcher.Decompress(resp.Header.Get("Content-Encoding"), raw, maxRobotsSize)
	if err != nil {
		return nil, false, StatusUnparseable
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, false, StatusUnparseable
	}
	return data, false, StatusParsed
}

// IsAllowed reports whether userAgent may fetch rawURL.
// Only the URL's path and query are matched against the rules.
func (g *Gate) IsAllowed(userAgent, rawURL string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.denyAll {
		return false
	}
	if g.data == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return g.data.TestAgent(u.RequestURI(), userAgent)
}

// Status describes how the current policy was obtained.
func (g *Gate) Status() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Location returns the robots.txt URL the policy was loaded from.
func (g *Gate) Location() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.location
}
