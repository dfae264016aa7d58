package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and Settings.Validate and
// can be matched with errors.Is.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide one or more seed URLs")

	// ErrInvalidSeed is returned when a seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxDepth is returned when the maximum depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidLinkPattern is returned when the link pattern does not compile.
	ErrInvalidLinkPattern = errors.New("invalid link pattern")

	// ErrInvalidProxy is returned for a proxy entry that is not scheme=URL
	// with scheme http or https.
	ErrInvalidProxy = errors.New("invalid proxy: expected http=URL or https=URL")

	// ErrInvalidExtractor is returned for an unknown link extractor name.
	ErrInvalidExtractor = errors.New("invalid extractor: must be regex or dom")

	// ErrInvalidOrder is returned for an unknown traversal order.
	ErrInvalidOrder = errors.New("invalid order: must be lifo or fifo")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRateLimit is returned when only one of the rate limit values is set
	// or either is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: requests and window must both be positive")
)
