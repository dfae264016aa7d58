package crawler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkcrawler/internal/model"
)

// DefaultBatchConcurrency is the number of seeds crawled at once.
const DefaultBatchConcurrency = 4

// SpiderFactory builds the Spider for one seed. Every seed gets its own
// Spider so no crawl state is shared between seeds.
type SpiderFactory func(seed string) (*Spider, error)

// Batch crawls several independent seeds concurrently.
type Batch struct {
	factory     SpiderFactory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// WithConcurrency sets how many seeds are crawled at once.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatch creates a Batch that builds spiders with factory.
func NewBatch(factory SpiderFactory, opts ...BatchOption) *Batch {
	b := &Batch{
		factory:     factory,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Result is the outcome of one seed in a batch.
type Result struct {
	Seed   string
	Index  int
	Report *model.CrawlReport
	Err    error
}

// Run crawls seeds and returns one Result per seed, in input order.
// A failing seed does not stop the others; its error is kept in its Result.
// The returned error is non-nil only when ctx ends.
func (b *Batch) Run(ctx context.Context, seeds []string) ([]Result, error) {
	results := make([]Result, len(seeds))
	var mu sync.Mutex

	err := b.RunWithCallback(ctx, seeds, func(r Result) {
		mu.Lock()
		results[r.Index] = r
		mu.Unlock()
	})
	return results, err
}

// RunWithCallback crawls seeds and calls callback as each one finishes.
// The callback runs on the crawling goroutine and must be safe for
// concurrent use.
func (b *Batch) RunWithCallback(ctx context.Context, seeds []string, callback func(Result)) error {
	b.logger.Info("starting batch crawl",
		"total_seeds", len(seeds),
		"concurrency", b.concurrency,
	)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				callback(Result{Seed: seed, Index: i, Err: err})
				return err
			}

			result := Result{Seed: seed, Index: i}
			spider, err := b.factory(seed)
			if err != nil {
				result.Err = err
			} else {
				result.Report, result.Err = spider.Crawl(ctx, seed)
			}

			if result.Err != nil {
				b.logger.Warn("crawl failed", "seed", seed, "error", result.Err)
			}
			callback(result)

			// Only cancellation stops the other seeds.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	b.logger.Info("batch crawl complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(start),
	)
	return err
}
