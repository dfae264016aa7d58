package model

import "time"

// StopReason explains why a crawl ended.
type StopReason string

const (
	// StopFrontierExhausted means no pending URLs were left.
	StopFrontierExhausted StopReason = "frontier_exhausted"

	// StopMaxURLs means the fetch count reached the configured maximum.
	StopMaxURLs StopReason = "max_urls_reached"

	// StopCancelled means the crawl's context ended first.
	StopCancelled StopReason = "cancelled"
)

// CrawlReport is the outcome of one crawl run.
type CrawlReport struct {
	// Seed is the starting URL as given.
	Seed string `json:"seed"`

	// UserAgent is the agent used for requests and robots matching.
	UserAgent string `json:"user_agent,omitempty"`

	// LinkPattern is the link acceptance pattern, empty when unset.
	LinkPattern string `json:"link_pattern,omitempty"`

	// MaxDepth and MaxURLs are the limits the run used.
	MaxDepth int `json:"max_depth"`
	MaxURLs  int `json:"max_urls"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// StopReason is why the run ended.
	StopReason StopReason `json:"stop_reason"`

	// RobotsStatus describes how the robots policy was obtained.
	RobotsStatus string `json:"robots_status"`

	// Pages lists every fetch in order.
	Pages []PageResult `json:"pages"`

	// Blocked lists URLs skipped by the robots policy, in order.
	Blocked []BlockedURL `json:"blocked"`

	// Seen lists the seen set in discovery order.
	Seen []SeenURL `json:"seen"`
}

// NewCrawlReport creates an empty report for seed.
func NewCrawlReport(seed string) *CrawlReport {
	return &CrawlReport{
		Seed:    seed,
		Pages:   make([]PageResult, 0),
		Blocked: make([]BlockedURL, 0),
		Seen:    make([]SeenURL, 0),
	}
}

// AddPage appends a fetched page.
func (r *CrawlReport) AddPage(p PageResult) {
	r.Pages = append(r.Pages, p)
}

// AddBlocked appends a robots-denied URL.
func (r *CrawlReport) AddBlocked(url string, depth int) {
	r.Blocked = append(r.Blocked, BlockedURL{URL: url, Depth: depth})
}

// Fetched returns the number of fetches performed.
func (r *CrawlReport) Fetched() int {
	return len(r.Pages)
}

// Failed returns the number of fetches that produced no body.
func (r *CrawlReport) Failed() int {
	n := 0
	for i := range r.Pages {
		if r.Pages[i].Failed() {
			n++
		}
	}
	return n
}

// Duration returns how long the run took.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StatusCounts returns the number of pages per status class.
func (r *CrawlReport) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for i := range r.Pages {
		counts[r.Pages[i].StatusClass()]++
	}
	return counts
}

// MaxDepthReached returns the greatest depth among fetched pages.
func (r *CrawlReport) MaxDepthReached() int {
	deepest := 0
	for i := range r.Pages {
		deepest = max(deepest, r.Pages[i].Depth)
	}
	return deepest
}

// RunSummary is an archived crawl run.
type RunSummary struct {
	ID         int64      `json:"id"`
	Seed       string     `json:"seed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	StopReason StopReason `json:"stop_reason"`
	Fetched    int        `json:"fetched"`
	Failed     int        `json:"failed"`
	Blocked    int        `json:"blocked"`
	Seen       int        `json:"seen"`
}
