// Package frontier schedules in-scope URLs for the worker pool.
package frontier

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/dedup"
	"github.com/JakeFAU/codecrawler/internal/metrics"
)

var skippedPrefixes = []string{"#", "javascript:", "mailto:", "tel:", "data:"}

// Stats is a point-in-time view of the frontier.
type Stats struct {
	Admitted int64
	Rejected int64
	Queued   int
	InFlight int
}

// Frontier is an unbounded FIFO of pending entries plus the visited set.
// Take blocks without polling while work is in flight and reports
// exhaustion once the queue is empty and nothing is in flight.
type Frontier struct {
	mu       sync.Mutex
	queue    []crawler.FrontierEntry
	inFlight int
	halted   bool
	wake     chan struct{}

	seed     string
	scope    string
	maxDepth int
	visited  *dedup.Set[string]
	admitted int64
	rejected int64
	logger   *zap.Logger
}

// Option customizes a Frontier.
type Option func(*Frontier)

// WithLogger attaches a logger for admission decisions.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Frontier) {
		if logger != nil {
			f.logger = logger.Named("frontier")
		}
	}
}

// New builds a Frontier scoped to the scheme and host of seed.
func New(seed string, maxDepth int, visited *dedup.Set[string], opts ...Option) (*Frontier, error) {
	normalized, err := crawler.NormalizeURL(seed)
	if err != nil {
		return nil, fmt.Errorf("normalize seed: %w", err)
	}
	scope, err := crawler.HostURL(normalized)
	if err != nil {
		return nil, fmt.Errorf("seed scope: %w", err)
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("max depth must be >= 0")
	}
	if visited == nil {
		visited = dedup.New[string]()
	}
	f := &Frontier{
		wake:     make(chan struct{}),
		seed:     normalized,
		scope:    scope,
		maxDepth: maxDepth,
		visited:  visited,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Scope returns the scheme://host prefix every admitted URL starts with.
func (f *Frontier) Scope() string {
	return f.scope
}

// MaxDepth returns the configured depth limit.
func (f *Frontier) MaxDepth() int {
	return f.maxDepth
}

// Seed returns the normalized seed URL.
func (f *Frontier) Seed() string {
	return f.seed
}

// AdmitSeed admits the seed URL at depth 0.
func (f *Frontier) AdmitSeed() bool {
	_, ok := f.Admit("", f.seed, 0)
	return ok
}

// Admit resolves href against base and enqueues it at depth when it is in
// scope, within the depth limit and not yet visited. It returns the
// normalized URL and whether it was enqueued.
func (f *Frontier) Admit(base, href string, depth int) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || hasSkippedPrefix(trimmed) {
		f.reject("unsupported")
		return "", false
	}
	target, err := crawler.ResolveURL(base, trimmed)
	if err != nil {
		f.reject("invalid")
		return "", false
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		f.reject("unsupported")
		return target, false
	}
	if !crawler.InScope(f.scope, target) {
		f.reject("out_of_scope")
		return target, false
	}
	if depth > f.maxDepth {
		f.reject("too_deep")
		return target, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.halted {
		f.rejected++
		metrics.ObserveAdmission("halted")
		return target, false
	}
	if !f.visited.MarkIfNew(target) {
		f.rejected++
		metrics.ObserveAdmission("visited")
		return target, false
	}
	f.queue = append(f.queue, crawler.FrontierEntry{URL: target, Depth: depth})
	f.admitted++
	metrics.ObserveAdmission("admitted")
	f.broadcastLocked()
	return target, true
}

// Take returns the next entry and marks it in flight. It returns false when
// the frontier is exhausted, halted or ctx ends.
func (f *Frontier) Take(ctx context.Context) (crawler.FrontierEntry, bool) {
	for {
		f.mu.Lock()
		if f.halted {
			f.mu.Unlock()
			return crawler.FrontierEntry{}, false
		}
		if len(f.queue) > 0 {
			entry := f.queue[0]
			f.queue[0] = crawler.FrontierEntry{}
			f.queue = f.queue[1:]
			f.inFlight++
			f.mu.Unlock()
			return entry, true
		}
		if f.inFlight == 0 {
			f.mu.Unlock()
			return crawler.FrontierEntry{}, false
		}
		wake := f.wake
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return crawler.FrontierEntry{}, false
		case <-wake:
		}
	}
}

// Done marks an entry returned by Take as finished.
func (f *Frontier) Done(entry crawler.FrontierEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.logger.Debug("frontier drained", zap.String("last_url", entry.URL))
	}
	f.broadcastLocked()
}

// Halt stops admissions and releases blocked Take callers.
// Entries already handed out keep running.
func (f *Frontier) Halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.halted {
		return
	}
	f.halted = true
	f.logger.Info("frontier halted", zap.Int("dropped", len(f.queue)), zap.Int("in_flight", f.inFlight))
	f.broadcastLocked()
}

// Stats returns a snapshot of the frontier counters.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Admitted: f.admitted,
		Rejected: f.rejected,
		Queued:   len(f.queue),
		InFlight: f.inFlight,
	}
}

func (f *Frontier) reject(reason string) {
	f.mu.Lock()
	f.rejected++
	f.mu.Unlock()
	metrics.ObserveAdmission(reason)
}

func hasSkippedPrefix(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// broadcastLocked wakes every goroutine waiting in Take.
func (f *Frontier) broadcastLocked() {
	close(f.wake)
	f.wake = make(chan struct{})
}
