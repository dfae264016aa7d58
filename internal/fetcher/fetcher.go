package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps the bytes read from one response.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultMaxRetries is the number of extra attempts after a 5xx.
	DefaultMaxRetries = 1

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Result describes the outcome of one Fetch.
type Result struct {
	// URL is the requested URL.
	URL string

	// Body is the page text. It is empty for every failed fetch.
	Body string

	// StatusCode is the status of the last response, or 0 when no
	// response was received.
	StatusCode int

	// Attempts is the number of requests sent.
	Attempts int

	// Decoded is false when Body holds raw bytes that are not valid UTF-8
	// or could not be decompressed.
	Decoded bool

	// ContentType is the Content-Type header of the last response.
	ContentType string

	// Size is the number of body bytes received before decoding.
	Size int

	// Err describes why the fetch failed. It is nil on success.
	Err error
}

// OK reports whether the fetch produced a body.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Fetcher performs crawl requests with retries.
type Fetcher struct {
	client *http.Client

	userAgent   string
	headers     map[string]string
	cookie      string
	proxies     map[string]string
	timeout     time.Duration
	maxRetries  int
	maxBodySize int64
	backoff     time.Duration
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders sets extra request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = maps.Clone(headers)
	}
}

// WithCookie sets a raw Cookie header value (e.g. "session=abc").
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithProxies routes requests through a proxy chosen by the target URL's
// scheme, e.g. {"http": "http://127.0.0.1:8080"}. Schemes without an entry
// connect directly.
func WithProxies(proxies map[string]string) Option {
	return func(f *Fetcher) {
		f.proxies = maps.Clone(proxies)
	}
}

// WithMaxRetries sets how many times a 5xx response is retried.
// Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = max(n, 0)
	}
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodySize limits how many bytes of a body are read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithRetryBackoff sets the pause before each retry. The default is none.
func WithRetryBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithLogger sets the logger for download progress.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher. It fails only for an unusable proxy URL.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxBodySize <= 0 {
		f.maxBodySize = DefaultMaxBodySize
	}

	proxies, err := parseProxies(f.proxies)
	if err != nil {
		return nil, err
	}

	f.client = &http.Client{
		Timeout: f.timeout,
		Transport: &headerInjectingTransport{
			base:      newTransport(proxies),
			cookie:    f.cookie,
			headers:   f.headers,
			userAgent: f.userAgent,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return f, nil
}

// Client returns the underlying HTTP client. Requests made with it carry
// the same headers and proxy settings as Fetch.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// MaxRetries returns the configured retry budget.
func (f *Fetcher) MaxRetries() int {
	return f.maxRetries
}

// Fetch downloads rawURL.
//
// A 5xx response is retried while the budget lasts, so at most
// MaxRetries()+1 requests are sent. Any status >= 400, a transport error,
// or an exhausted budget produces an empty body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *Result {
	res := &Result{URL: rawURL}
	f.logger.Info("downloading", "url", rawURL)

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 && f.backoff > 0 {
			if err := sleep(ctx, f.backoff); err != nil {
				res.Err = fmt.Errorf("%w: %w", ErrTransport, err)
				return res
			}
		}

		res.Attempts++
		retry := f.attempt(ctx, res)
		if !retry {
			break
		}
		f.logger.Warn("download error, retrying",
			"url", rawURL, "status", res.StatusCode, "attempt", res.Attempts)
	}

	if res.Err != nil {
		f.logger.Warn("download error",
			"url", rawURL, "status", res.StatusCode, "attempts", res.Attempts, "error", res.Err)
	}
	return res
}

// attempt sends one request and fills res. It reports whether the
// response is a server error that may be retried.
func (f *Fetcher) attempt(ctx context.Context, res *Result) bool {
	res.Body = ""
	res.Decoded = false
	res.Size = 0

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		res.StatusCode = 0
		res.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		return false
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		res.StatusCode = 0
		res.ContentType = ""
		res.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		return false
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.ContentType = resp.Header.Get("Content-Type")

	switch {
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		drain(resp.Body)
		res.Err = fmt.Errorf("%w: %d", ErrServerStatus, resp.StatusCode)
		return true
	case resp.StatusCode >= 400:
		drain(resp.Body)
		res.Err = fmt.Errorf("%w: %d", ErrClientStatus, resp.StatusCode)
		return false
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		res.Err = fmt.Errorf("%w: read body: %w", ErrTransport, err)
		return false
	}
	if int64(len(raw)) > f.maxBodySize {
		res.Err = fmt.Errorf("%w: exceeds %d bytes", ErrBodyTooLarge, f.maxBodySize)
		return false
	}
	res.Size = len(raw)
	res.Err = nil

	plain, err := Decompress(resp.Header.Get("Content-Encoding"), raw, f.maxBodySize)
	if errors.Is(err, ErrBodyTooLarge) {
		res.Err = err
		return false
	}
	if err != nil {
		f.logger.Debug("content decoding failed, keeping raw bytes", "url", res.URL, "error", err)
		res.Body = string(raw)
		return false
	}

	res.Body, res.Decoded = decodeText(plain)
	if !res.Decoded {
		f.logger.Debug("body is not valid UTF-8, keeping raw bytes", "url", res.URL)
	}
	return false
}

// drain discards a bounded amount of an unused body so the connection can
// be reused.
func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
