package config

import (
	"fmt"
	"maps"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkcrawler"

	// DefaultDelay is the minimum spacing between two requests to one domain.
	DefaultDelay = 5 * time.Second

	// DefaultMaxDepth is the number of link hops followed from the seed.
	DefaultMaxDepth = 10

	// DefaultMaxURLs stops a crawl after this many fetches.
	DefaultMaxURLs = 100

	// DefaultUserAgent is sent with every request and matched against robots.txt.
	DefaultUserAgent = "wswp"

	// DefaultMaxRetries is the number of retries after a 5xx response.
	DefaultMaxRetries = 1

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultExtractor is the href extractor name.
	DefaultExtractor = "regex"

	// DefaultOrder is the traversal order name.
	DefaultOrder = "lifo"
)

// Config holds all configuration options for linkcrawler.
// It is populated from CLI flags, then refined per seed by the
// configuration file (see SettingsFor).
type Config struct {
	// Seeds are the start URLs. Each seed is crawled independently.
	Seeds []string

	// LinkPattern is a regular expression a raw href must match at its
	// start to be followed. Empty follows no links; ".*" follows all.
	LinkPattern string

	// Delay is the politeness delay between requests to one domain.
	Delay time.Duration

	// MaxDepth is the number of link hops followed from the seed.
	// 0 fetches the seed only.
	MaxDepth int

	// MaxURLs stops a crawl after that many fetches. 0 or less means no limit.
	MaxURLs int

	// Headers are sent with every request.
	Headers map[string]string

	// Cookie is a raw Cookie header value.
	Cookie string

	// UserAgent is the User-Agent header and the robots.txt agent name.
	UserAgent string

	// Proxies maps a URL scheme (http, https) to a proxy URL.
	Proxies map[string]string

	// MaxRetries is the number of retries after a 5xx response.
	MaxRetries int

	// Timeout bounds a single request attempt.
	Timeout time.Duration

	// MaxBodySize limits the bytes read per response. 0 uses the default.
	MaxBodySize int64

	// Extractor selects the href extractor: "regex" or "dom".
	Extractor string

	// Order selects the traversal order: "lifo" or "fifo".
	Order string

	// RateLimitRequests and RateLimitWindow add a per-domain token bucket
	// on top of Delay. Both zero disables it.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the file is searched for (see FindConfigFile).
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file.
	SiteConfigs *File

	// Explicit lists settings given on the command line, keyed by their
	// configuration file name (e.g. "depth"). Explicit settings are not
	// overridden by the configuration file.
	Explicit map[string]bool

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output path. Empty writes to stdout.
	ReportFile string

	// DBDir is the directory of the crawl archive database.
	DBDir string

	// SaveToDB archives every finished crawl report.
	SaveToDB bool

	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Delay:       DefaultDelay,
		MaxDepth:    DefaultMaxDepth,
		MaxURLs:     DefaultMaxURLs,
		Headers:     make(map[string]string),
		UserAgent:   DefaultUserAgent,
		Proxies:     make(map[string]string),
		MaxRetries:  DefaultMaxRetries,
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
		Extractor:   DefaultExtractor,
		Order:       DefaultOrder,
		BatchSize:   DefaultBatchSize,
		Explicit:    make(map[string]bool),
	}
}

// XDGDataDir returns the XDG data directory for linkcrawler.
// On Linux: ~/.local/share/linkcrawler
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkcrawler.
// On Linux: ~/.config/linkcrawler
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the global options and the resolved settings of every
// seed. It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoTarget
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	for _, seed := range c.Seeds {
		s := c.SettingsFor(seed)
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%s: %w", seed, err)
		}
	}
	return nil
}

// Settings are the effective crawl options for one seed.
type Settings struct {
	Seed              string
	LinkPattern       string
	Delay             time.Duration
	MaxDepth          int
	MaxURLs           int
	Headers           map[string]string
	Cookie            string
	UserAgent         string
	Proxies           map[string]string
	MaxRetries        int
	Timeout           time.Duration
	MaxBodySize       int64
	Extractor         string
	Order             string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// SettingsFor resolves the options for seed.
//
// Values come from the command line and built-in defaults, then the
// configuration file's defaults block, then the block of the seed's host.
// Options passed explicitly on the command line always win. Headers and
// proxies are merged key by key.
func (c *Config) SettingsFor(seed string) Settings {
	s := Settings{
		Seed:              seed,
		LinkPattern:       c.LinkPattern,
		Delay:             c.Delay,
		MaxDepth:          c.MaxDepth,
		MaxURLs:           c.MaxURLs,
		Headers:           maps.Clone(c.Headers),
		Cookie:            c.Cookie,
		UserAgent:         c.UserAgent,
		Proxies:           maps.Clone(c.Proxies),
		MaxRetries:        c.MaxRetries,
		Timeout:           c.Timeout,
		MaxBodySize:       c.MaxBodySize,
		Extractor:         c.Extractor,
		Order:             c.Order,
		RateLimitRequests: c.RateLimitRequests,
		RateLimitWindow:   c.RateLimitWindow,
	}
	if s.Headers == nil {
		s.Headers = make(map[string]string)
	}
	if s.Proxies == nil {
		s.Proxies = make(map[string]string)
	}

	if c.SiteConfigs == nil {
		return s
	}
	site := c.SiteConfigs.GetSiteConfig(SiteKey(seed))
	c.apply(&s, site)
	return s
}

// apply copies the file values in site into s unless the command line set them.
func (c *Config) apply(s *Settings, site SiteConfig) {
	explicit := func(key string) bool { return c.Explicit[key] }

	if site.LinkPattern != "" && !explicit("link_pattern") {
		s.LinkPattern = site.LinkPattern
	}
	if site.Delay != nil && !explicit("delay") {
		s.Delay = *site.Delay
	}
	if site.Depth != nil && !explicit("depth") {
		s.MaxDepth = *site.Depth
	}
	if site.MaxURLs != nil && !explicit("max_urls") {
		s.MaxURLs = *site.MaxURLs
	}
	if site.Retries != nil && !explicit("retries") {
		s.MaxRetries = *site.Retries
	}
	if site.UserAgent != "" && !explicit("user_agent") {
		s.UserAgent = site.UserAgent
	}
	if site.Cookie != "" && !explicit("cookie") {
		s.Cookie = site.Cookie
	}
	for k, v := range site.Headers {
		// Command-line headers take precedence per key.
		if _, ok := c.Headers[k]; ok && explicit("headers") {
			continue
		}
		s.Headers[k] = v
	}
	for k, v := range site.Proxy {
		if _, ok := c.Proxies[k]; ok && explicit("proxy") {
			continue
		}
		s.Proxies[k] = v
	}
}

// Validate checks the settings of one seed.
func (s *Settings) Validate() error {
	u, err := url.Parse(s.Seed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeed
	}
	if s.Delay < 0 {
		return ErrInvalidDelay
	}
	if s.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if s.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if s.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if s.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if (s.RateLimitRequests > 0) != (s.RateLimitWindow > 0) ||
		s.RateLimitRequests < 0 || s.RateLimitWindow < 0 {
		return ErrInvalidRateLimit
	}
	if _, err := regexp.Compile(s.LinkPattern); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLinkPattern, err)
	}
	switch strings.ToLower(s.Extractor) {
	case "", "regex", "dom":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidExtractor, s.Extractor)
	}
	switch strings.ToLower(s.Order) {
	case "", "lifo", "fifo":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrder, s.Order)
	}
	for scheme, proxy := range s.Proxies {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, scheme)
		}
		p, err := url.Parse(proxy)
		if err != nil || p.Scheme == "" || p.Host == "" {
			return fmt.Errorf("%w: %s proxy is not a URL", ErrInvalidProxy, scheme)
		}
	}
	return nil
}

// ParseProxy parses a "scheme=URL" proxy flag value.
func ParseProxy(value string) (scheme, proxyURL string, err error) {
	scheme, proxyURL, ok := strings.Cut(value, "=")
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	proxyURL = strings.TrimSpace(proxyURL)
	if !ok || scheme == "" || proxyURL == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidProxy, value)
	}
	return scheme, proxyURL, nil
}

// SiteKey returns the configuration file key for seed: its host:port in
// lower case, or the seed itself if it cannot be parsed.
func SiteKey(seed string) string {
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return seed
	}
	return strings.ToLower(u.Host)
}
