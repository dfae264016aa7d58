package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/linkcrawler/internal/fetcher"
	"github.com/nao1215/linkcrawler/internal/frontier"
	"github.com/nao1215/linkcrawler/internal/links"
	"github.com/nao1215/linkcrawler/internal/metrics"
	"github.com/nao1215/linkcrawler/internal/model"
	"github.com/nao1215/linkcrawler/internal/robots"
	"github.com/nao1215/linkcrawler/internal/throttle"
)

// Default crawl limits.
const (
	DefaultMaxDepth  = 10
	DefaultMaxURLs   = 100
	DefaultDelay     = 5 * time.Second
	DefaultUserAgent = "wswp"
)

// PageFetcher downloads one URL. *fetcher.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) *fetcher.Result
}

// Throttler paces requests per domain. *throttle.Throttle implements it.
type Throttler interface {
	Wait(ctx context.Context, rawURL string) (time.Duration, error)
}

// RobotsPolicy answers whether a URL may be fetched. *robots.Gate implements it.
type RobotsPolicy interface {
	Load(ctx context.Context, seed string) error
	IsAllowed(userAgent, rawURL string) bool
	Status() string
}

// PageHook is called after every fetch with the page record and its body.
type PageHook func(page *model.PageResult, body string)

// Spider crawls one site from a seed URL.
type Spider struct {
	fetcher  PageFetcher
	throttle Throttler
	robots   RobotsPolicy

	// delay is used to build a throttle when none is injected.
	delay time.Duration

	userAgent string

	// maxDepth is the deepest level links are followed from.
	// 0 fetches the seed only.
	maxDepth int

	// maxURLs stops the crawl after that many fetches. 0 or less means no limit.
	maxURLs int

	linkPattern string
	filter      *links.Filter
	extractor   links.Extractor
	order       frontier.Order

	logger   *slog.Logger
	metrics  *metrics.Metrics
	pageHook PageHook
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed, 1 = the seed plus pages it links to, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxURLs sets the maximum number of fetches. 0 or less removes the limit.
func WithMaxURLs(n int) SpiderOption {
	return func(s *Spider) {
		s.maxURLs = n
	}
}

// WithDelay sets the per-domain politeness delay.
// It is ignored when a throttle is injected with WithThrottle.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithUserAgent sets the agent name matched against robots.txt.
// Use the same value as the fetcher's User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithLinkPattern sets the regular expression a raw href must match at its
// start to be followed. Without a pattern no links are extracted and only
// the seed is fetched; use ".*" to follow every link.
func WithLinkPattern(pattern string) SpiderOption {
	return func(s *Spider) {
		s.linkPattern = pattern
	}
}

// WithExtractor replaces the href extractor.
func WithExtractor(e links.Extractor) SpiderOption {
	return func(s *Spider) {
		s.extractor = e
	}
}

// WithOrder sets the queue discipline. The default is LIFO.
func WithOrder(o frontier.Order) SpiderOption {
	return func(s *Spider) {
		s.order = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithMetrics records crawl progress on m.
func WithMetrics(m *metrics.Metrics) SpiderOption {
	return func(s *Spider) {
		s.metrics = m
	}
}

// WithPageHook registers a callback run after every fetch.
func WithPageHook(hook PageHook) SpiderOption {
	return func(s *Spider) {
		s.pageHook = hook
	}
}

// WithFetcher replaces the page fetcher.
func WithFetcher(f PageFetcher) SpiderOption {
	return func(s *Spider) {
		s.fetcher = f
	}
}

// WithThrottle replaces the per-domain throttle. An injected throttle keeps
// its domain clock across Crawl calls.
func WithThrottle(t Throttler) SpiderOption {
	return func(s *Spider) {
		s.throttle = t
	}
}

// WithRobots replaces the robots gate.
func WithRobots(r RobotsPolicy) SpiderOption {
	return func(s *Spider) {
		s.robots = r
	}
}

// NewSpider creates a Spider. It fails when the link pattern does not compile.
func NewSpider(opts ...SpiderOption) (*Spider, error) {
	s := &Spider{
		delay:     DefaultDelay,
		userAgent: DefaultUserAgent,
		maxDepth:  DefaultMaxDepth,
		maxURLs:   DefaultMaxURLs,
		extractor: links.RegexExtractor{},
		order:     frontier.LIFO,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	filter, err := links.NewFilter(s.linkPattern)
	if err != nil {
		return nil, err
	}
	s.filter = filter

	if s.fetcher == nil {
		f, err := fetcher.New(
			fetcher.WithUserAgent(s.userAgent),
			fetcher.WithLogger(s.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}
		s.fetcher = f
	}

	return s, nil
}

// Crawl fetches pages starting from seed until the frontier is empty, the
// fetch limit is reached or ctx ends.
//
// A cancelled crawl returns the partial report together with the context
// error. The only other error is an invalid seed.
func (s *Spider) Crawl(ctx context.Context, seed string) (*model.CrawlReport, error) {
	front, err := frontier.New(seed, frontier.WithOrder(s.order))
	if err != nil {
		return nil, err
	}

	gate := s.robots
	if gate == nil {
		gate = robots.NewGate(s.robotsClient(), s.userAgent)
	}
	pacer := s.throttle
	if pacer == nil {
		pacer = throttle.New(s.delay)
	}

	report := model.NewCrawlReport(seed)
	report.UserAgent = s.userAgent
	report.LinkPattern = s.filter.String()
	report.MaxDepth = s.maxDepth
	report.MaxURLs = s.maxURLs
	report.StartedAt = time.Now()

	logger := s.logger.With("seed", seed)

	if err := gate.Load(ctx, seed); err != nil {
		return nil, fmt.Errorf("failed to load robots.txt: %w", err)
	}
	report.RobotsStatus = gate.Status()
	logger.Debug("robots policy loaded", "status", report.RobotsStatus)

	reason, err := s.run(ctx, seed, front, gate, pacer, report, logger)

	report.StopReason = reason
	report.FinishedAt = time.Now()
	for _, e := range front.Seen() {
		report.Seen = append(report.Seen, model.SeenURL{URL: e.URL, Depth: e.Depth})
	}
	s.metrics.SetFrontierSize(front.Len())

	logger.Info("crawl finished",
		"reason", reason,
		"fetched", report.Fetched(),
		"blocked", len(report.Blocked),
		"seen", len(report.Seen),
	)
	return report, err
}

// run is the crawl loop.
func (s *Spider) run(
	ctx context.Context,
	seed string,
	front *frontier.Frontier,
	gate RobotsPolicy,
	pacer Throttler,
	report *model.CrawlReport,
	logger *slog.Logger,
) (model.StopReason, error) {
	fetched := 0
	for {
		if err := ctx.Err(); err != nil {
			return model.StopCancelled, err
		}

		entry, ok := front.Next()
		if !ok {
			return model.StopFrontierExhausted, nil
		}
		s.metrics.SetFrontierSize(front.Len())

		if !gate.IsAllowed(s.userAgent, entry.URL) {
			logger.Warn("blocked by robots.txt", "url", entry.URL)
			report.AddBlocked(entry.URL, entry.Depth)
			s.metrics.IncBlocked()
			continue
		}

		waited, err := pacer.Wait(ctx, entry.URL)
		s.metrics.ObserveThrottleWait(waited)
		if err != nil {
			return model.StopCancelled, err
		}

		page, body := s.visit(ctx, seed, entry, front, logger)
		report.AddPage(*page)
		s.metrics.ObserveFetch(page.StatusClass(), page.Attempts)
		if s.pageHook != nil {
			s.pageHook(page, body)
		}

		fetched++
		if s.maxURLs > 0 && fetched >= s.maxURLs {
			return model.StopMaxURLs, nil
		}
	}
}

// visit fetches one entry and discovers its links.
func (s *Spider) visit(
	ctx context.Context,
	seed string,
	entry frontier.Entry,
	front *frontier.Frontier,
	logger *slog.Logger,
) (*model.PageResult, string) {
	res := s.fetcher.Fetch(ctx, entry.URL)

	page := &model.PageResult{
		URL:         entry.URL,
		Depth:       entry.Depth,
		StatusCode:  res.StatusCode,
		Attempts:    res.Attempts,
		ContentType: res.ContentType,
		Size:        res.Size,
		Decoded:     res.Decoded,
		FetchedAt:   time.Now(),
	}
	if res.Err != nil {
		page.Error = res.Err.Error()
	}
	page.ComputeHash(res.Body)

	if entry.Depth >= s.maxDepth || s.linkPattern == "" {
		return page, res.Body
	}

	hrefs := s.extractor.Extract(res.Body)
	page.LinksFound = len(hrefs)
	for _, href := range hrefs {
		if !s.filter.Accept(href) {
			continue
		}
		page.LinksAccepted++

		abs, err := links.Normalize(seed, href)
		if err != nil {
			// Recorded as written; it never parses, so it is never fetched.
			logger.Debug("keeping unresolvable link", "href", href, "error", err)
			abs, _, _ = strings.Cut(href, "#")
			if abs == "" {
				continue
			}
		}
		if front.Discover(abs, entry.Depth+1) {
			page.LinksNew++
		}
	}
	return page, res.Body
}

// robotsClient returns the HTTP client used to fetch robots.txt.
func (s *Spider) robotsClient() *http.Client {
	if c, ok := s.fetcher.(interface{ Client() *http.Client }); ok {
		return c.Client()
	}
	return nil
}

// MaxDepth returns the configured maximum depth.
func (s *Spider) MaxDepth() int {
	return s.maxDepth
}

// MaxURLs returns the configured fetch limit.
func (s *Spider) MaxURLs() int {
	return s.maxURLs
}
