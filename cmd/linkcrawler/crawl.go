package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/linkcrawler/internal/config"
	"github.com/nao1215/linkcrawler/internal/crawler"
	"github.com/nao1215/linkcrawler/internal/database"
	"github.com/nao1215/linkcrawler/internal/fetcher"
	"github.com/nao1215/linkcrawler/internal/frontier"
	"github.com/nao1215/linkcrawler/internal/links"
	"github.com/nao1215/linkcrawler/internal/log"
	"github.com/nao1215/linkcrawler/internal/metrics"
	"github.com/nao1215/linkcrawler/internal/model"
	"github.com/nao1215/linkcrawler/internal/report"
	"github.com/nao1215/linkcrawler/internal/throttle"
	"github.com/spf13/cobra"
)

// flagKeys maps crawl flags to their configuration file keys. A flag set
// on the command line is not overridden by the file.
var flagKeys = map[string]string{
	"pattern":    "link_pattern",
	"delay":      "delay",
	"depth":      "depth",
	"max-urls":   "max_urls",
	"header":     "headers",
	"cookie":     "cookie",
	"user-agent": "user_agent",
	"proxy":      "proxy",
	"retries":    "retries",
}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl web sites starting from seed URLs",
		Long: `Crawl fetches pages starting from each seed URL.

For every fetched page it extracts the href of each anchor, keeps the
links whose href starts with a match of --pattern (without --pattern only
the seed is fetched), resolves them against
the seed and queues those on the seed's domain. Links on other domains
are recorded but never fetched.

Before the first request the seed's robots.txt is read; disallowed URLs
are skipped. Requests to one domain are spaced by --delay, and 5xx
responses are retried up to --retries times.

Examples:
  # Crawl index and view pages two links deep
  linkcrawler crawl -r '/places/default/(index|view)' -d 2 http://example.webscraping.com/

  # Crawl several sites, three at a time
  linkcrawler crawl -r '.*' -b 3 https://a.example/ https://b.example/ https://c.example/

  # Send a header, go through a proxy and write a JSON report
  linkcrawler crawl -H 'Accept-Language=en' --proxy http=http://127.0.0.1:3128 -j -o out.json https://example.com/

  # Expose Prometheus metrics while crawling
  linkcrawler crawl --metrics-addr 127.0.0.1:9090 https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl scope
	cmd.Flags().StringP("pattern", "r", "",
		"Follow only links whose href starts with a match of this regular expression (unset: fetch the seed only, '.*': follow all)")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from the seed (0 fetches the seed only)")
	cmd.Flags().IntP("max-urls", "n", config.DefaultMaxURLs,
		"Stop after this many fetches (0 means no limit)")
	cmd.Flags().String("extractor", config.DefaultExtractor,
		"Link extractor: regex or dom")
	cmd.Flags().String("order", config.DefaultOrder,
		"Traversal order: lifo (depth-first) or fifo (breadth-first)")

	// Politeness
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum time between two requests to the same domain")
	cmd.Flags().Int("rate-limit", 0,
		"Additional per-domain request budget per --rate-window (0 disables)")
	cmd.Flags().Duration("rate-window", 0,
		"Window for --rate-limit (e.g. 1m)")

	// Requests
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header as Key=Value (repeatable)")
	cmd.Flags().String("cookie", "",
		"Cookie header value (e.g. \"session=abc\")")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header, also used to match robots.txt")
	cmd.Flags().StringArray("proxy", nil,
		"Proxy per URL scheme as scheme=URL, e.g. http=http://127.0.0.1:3128 (repeatable)")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries after a 5xx response")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Batch crawling
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkcrawler in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write reports to this file (creates directories if needed)")

	// Archive and metrics
	cmd.Flags().Bool("no-save", false,
		"Do not archive crawl reports in the database")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while crawling (e.g. 127.0.0.1:9090)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.LinkPattern, err = flags.GetString("pattern"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxURLs, err = flags.GetInt("max-urls"); err != nil {
		return nil, err
	}
	if cfg.Extractor, err = flags.GetString("extractor"); err != nil {
		return nil, err
	}
	if cfg.Order, err = flags.GetString("order"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.RateLimitRequests, err = flags.GetInt("rate-limit"); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = flags.GetDuration("rate-window"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		key, value, ok := strings.Cut(h, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected Key=Value", h)
		}
		cfg.Headers[key] = strings.TrimSpace(value)
	}

	proxies, err := flags.GetStringArray("proxy")
	if err != nil {
		return nil, err
	}
	for _, p := range proxies {
		scheme, proxyURL, err := config.ParseProxy(p)
		if err != nil {
			return nil, err
		}
		cfg.Proxies[scheme] = proxyURL
	}

	for flag, key := range flagKeys {
		if flags.Changed(flag) {
			cfg.Explicit[key] = true
		}
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	// An explicit config path must exist; a searched-for one is optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Seeds = args
	return cfg, nil
}

// setupLogger creates the secure structured logger.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// runCrawl crawls every seed and writes one report per seed.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, m, logger)
		if err != nil {
			return err
		}
		defer stop()
		fmt.Fprintf(stderr, "Serving metrics on http://%s/metrics\n", cfg.MetricsAddr)
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // reported by the explicit close below
	writer := newReportWriter(cfg, output)

	throttles := newThrottleSet()
	factory := func(seed string) (*crawler.Spider, error) {
		s := cfg.SettingsFor(seed)
		return newSpider(s, throttles.get(seed, s), m, logger)
	}

	batch := crawler.NewBatch(factory,
		crawler.WithConcurrency(min(cfg.BatchSize, len(cfg.Seeds))),
		crawler.WithBatchLogger(logger),
	)

	start := time.Now()
	var (
		mu     sync.Mutex
		failed int
		done   int
	)
	runErr := batch.RunWithCallback(ctx, cfg.Seeds, func(r crawler.Result) {
		mu.Lock()
		defer mu.Unlock()
		done++

		if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
			failed++
			fmt.Fprintf(stderr, "[%d/%d] Crawl error for %s: %v\n", done, len(cfg.Seeds), r.Seed, r.Err)
		}
		if r.Report == nil {
			return
		}
		fmt.Fprintf(stderr, "[%d/%d] Crawled %s: %d fetched, %d blocked, %d seen (%s)\n",
			done, len(cfg.Seeds), r.Seed, r.Report.Fetched(), len(r.Report.Blocked),
			len(r.Report.Seen), r.Report.Duration().Round(time.Millisecond))

		if _, err := writer.Write(r.Report); err != nil {
			logger.Error("report failed", "seed", r.Seed, "error", err)
		}
		// Archive partial reports of cancelled crawls too.
		if err := saveCrawlReport(context.WithoutCancel(ctx), db, r.Report, logger); err != nil {
			logger.Error("failed to save crawl report", "seed", r.Seed, "error", err)
		}
	})

	if len(cfg.Seeds) > 1 {
		fmt.Fprintf(stderr, "\nBatch crawl completed in %s\n", time.Since(start).Round(time.Millisecond))
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("crawl interrupted: %w", runErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(cfg.Seeds))
	}
	return nil
}

// newSpider builds a Spider from the resolved settings of one seed.
func newSpider(s config.Settings, pacer crawler.Throttler, m *metrics.Metrics, logger *slog.Logger) (*crawler.Spider, error) {
	extractor, err := links.NewExtractor(s.Extractor)
	if err != nil {
		return nil, err
	}
	order, err := frontier.ParseOrder(s.Order)
	if err != nil {
		return nil, err
	}

	f, err := fetcher.New(
		fetcher.WithUserAgent(s.UserAgent),
		fetcher.WithHeaders(s.Headers),
		fetcher.WithCookie(s.Cookie),
		fetcher.WithProxies(s.Proxies),
		fetcher.WithMaxRetries(s.MaxRetries),
		fetcher.WithTimeout(s.Timeout),
		fetcher.WithMaxBodySize(s.MaxBodySize),
		fetcher.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	return crawler.NewSpider(
		crawler.WithMaxDepth(s.MaxDepth),
		crawler.WithMaxURLs(s.MaxURLs),
		crawler.WithDelay(s.Delay),
		crawler.WithUserAgent(s.UserAgent),
		crawler.WithLinkPattern(s.LinkPattern),
		crawler.WithExtractor(extractor),
		crawler.WithOrder(order),
		crawler.WithFetcher(f),
		crawler.WithThrottle(pacer),
		crawler.WithMetrics(m),
		crawler.WithLogger(logger),
	)
}

// throttleSet shares one Throttle per domain across the seeds of a batch,
// so two seeds on one host still respect the delay between them.
type throttleSet struct {
	mu        sync.Mutex
	throttles map[string]*throttle.Throttle
}

func newThrottleSet() *throttleSet {
	return &throttleSet{throttles: make(map[string]*throttle.Throttle)}
}

// get returns the throttle for seed's domain. The first seed of a domain
// decides its delay and rate limit.
func (ts *throttleSet) get(seed string, s config.Settings) *throttle.Throttle {
	key := strings.ToLower(links.Domain(seed))

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if t, ok := ts.throttles[key]; ok {
		return t
	}
	var opts []throttle.Option
	if s.RateLimitRequests > 0 {
		opts = append(opts, throttle.WithRateLimit(s.RateLimitRequests, s.RateLimitWindow))
	}
	t := throttle.New(s.Delay, opts...)
	ts.throttles[key] = t
	return t
}

// serveMetrics starts a metrics endpoint and returns a function that stops it.
func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) //nolint:errcheck // best effort on exit
	}, nil
}

// openOutput returns the report destination. A file is created with 0600
// permissions and its parent directories with 0750. The returned close
// function is safe to call twice.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, sync.OnceValue(f.Close), nil
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveCrawlReport archives report. A nil db is a no-op.
func saveCrawlReport(ctx context.Context, db *database.CrawlDB, rep *model.CrawlReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	id, err := db.SaveCrawlReport(ctx, rep)
	if err != nil {
		return err
	}
	logger.Info("crawl report saved to database", "seed", rep.Seed, "run_id", id)
	return nil
}
