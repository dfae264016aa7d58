// Package frontier tracks every URL a crawl has discovered and the order in
// which pending URLs are handed out.
package frontier

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/nao1215/linkcrawler/internal/links"
)

// ErrInvalidSeed is returned when the seed URL is empty or not absolute.
var ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute URL")

// Order selects which end of the queue Next takes work from.
type Order int

const (
	// LIFO takes the most recently discovered URL first. New URLs are
	// appended to the same end, so traversal is depth-first in practice.
	LIFO Order = iota

	// FIFO takes the oldest pending URL first (breadth-first).
	FIFO
)

// String returns the configuration name of the order.
func (o Order) String() string {
	switch o {
	case LIFO:
		return "lifo"
	case FIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParseOrder converts a configuration value to an Order.
// An empty string selects LIFO.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lifo":
		return LIFO, nil
	case "fifo":
		return FIFO, nil
	default:
		return LIFO, fmt.Errorf("unknown traversal order %q", s)
	}
}

// Entry is a discovered URL and the depth at which it was first seen.
type Entry struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// Frontier holds the seen set and the pending crawl queue for one crawl.
// It is safe for concurrent use.
type Frontier struct {
	seed  string
	order Order

	mu    sync.Mutex
	seen  map[string]int
	trail []Entry
	queue []Entry
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithOrder sets the traversal order. The default is LIFO.
func WithOrder(o Order) Option {
	return func(f *Frontier) {
		f.order = o
	}
}

// New creates a frontier seeded with seed at depth 0.
// The seed is recorded exactly as given.
func New(seed string, opts ...Option) (*Frontier, error) {
	u, err := url.Parse(seed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	f := &Frontier{
		seed:  seed,
		order: LIFO,
		seen:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.seen[seed] = 0
	f.trail = append(f.trail, Entry{URL: seed, Depth: 0})
	f.queue = append(f.queue, Entry{URL: seed, Depth: 0})
	return f, nil
}

// Seed returns the seed URL.
func (f *Frontier) Seed() string {
	return f.seed
}

// Discover records rawURL at depth if it has not been seen before.
// Newly seen URLs on the seed's domain are appended to the queue; URLs on
// other domains are only recorded. The first recorded depth always wins.
// It reports whether rawURL was newly recorded.
func (f *Frontier) Discover(rawURL string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[rawURL]; ok {
		return false
	}
	f.seen[rawURL] = depth
	f.trail = append(f.trail, Entry{URL: rawURL, Depth: depth})

	if links.SameDomain(f.seed, rawURL) {
		f.queue = append(f.queue, Entry{URL: rawURL, Depth: depth})
	}
	return true
}

// Next removes and returns the next pending entry.
// The second return value is false when the queue is empty.
func (f *Frontier) Next() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return Entry{}, false
	}

	var e Entry
	if f.order == FIFO {
		e = f.queue[0]
		f.queue[0] = Entry{}
		f.queue = f.queue[1:]
	} else {
		last := len(f.queue) - 1
		e = f.queue[last]
		f.queue = f.queue[:last]
	}
	return e, true
}

// Depth returns the recorded depth of rawURL.
func (f *Frontier) Depth(rawURL string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.seen[rawURL]
	return d, ok
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// SeenCount returns the number of distinct URLs recorded, including the seed.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// Seen returns every recorded URL in discovery order.
func (f *Frontier) Seen() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entry, len(f.trail))
	copy(out, f.trail)
	return out
}
