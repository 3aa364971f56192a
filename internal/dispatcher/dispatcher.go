// Package dispatcher fans frontier entries out to a bounded pool of workers
// and enforces the crawl-wide deadline.
package dispatcher

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/frontier"
	"github.com/JakeFAU/codecrawler/internal/metrics"
	"github.com/JakeFAU/codecrawler/internal/worker"
)

// Processor runs one entry to completion.
type Processor interface {
	Process(ctx context.Context, entry crawler.FrontierEntry) worker.Result
}

// Config bounds a crawl run.
type Config struct {
	RunID       string
	Concurrency int
	// MaxDuration is the wall-clock budget; zero disables the deadline.
	MaxDuration time.Duration
}

// Dispatcher drives one crawl over a frontier.
type Dispatcher struct {
	frontier  *frontier.Frontier
	processor Processor
	cfg       Config
	logger    *zap.Logger

	processed  atomic.Int64
	failed     atomic.Int64
	skipped    atomic.Int64
	codeBlocks atomic.Int64
	startedAt  atomic.Int64
	finishedAt atomic.Int64
	deadline   atomic.Bool
}

// New creates a Dispatcher. Concurrency below one is treated as one.
func New(f *frontier.Frontier, processor Processor, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		frontier:  f,
		processor: processor,
		cfg:       cfg,
		logger:    logger.Named("dispatcher"),
	}
}

// Run seeds the frontier and blocks until it is exhausted, the deadline
// passes, or ctx ends. Entries already dispatched when the deadline passes
// run to completion on ctx; nothing new is dispatched afterwards.
func (d *Dispatcher) Run(ctx context.Context) crawler.Stats {
	d.startedAt.Store(time.Now().UnixNano())
	d.logger.Info("crawl started",
		zap.String("run_id", d.cfg.RunID),
		zap.String("seed", d.frontier.Seed()),
		zap.Int("max_depth", d.frontier.MaxDepth()),
		zap.Int("concurrency", d.cfg.Concurrency),
		zap.Duration("max_duration", d.cfg.MaxDuration),
	)
	if !d.frontier.AdmitSeed() {
		d.logger.Warn("seed was not admitted", zap.String("seed", d.frontier.Seed()))
	}

	if d.cfg.MaxDuration > 0 {
		governor := time.AfterFunc(d.cfg.MaxDuration, func() {
			d.deadline.Store(true)
			d.logger.Warn("crawl deadline reached; no further entries will be dispatched",
				zap.Duration("max_duration", d.cfg.MaxDuration))
			d.frontier.Halt()
		})
		defer governor.Stop()
	}
	stop := context.AfterFunc(ctx, d.frontier.Halt)
	defer stop()

	var g errgroup.Group
	for i := 0; i < d.cfg.Concurrency; i++ {
		g.Go(func() error {
			d.loop(ctx)
			return nil
		})
	}
	_ = g.Wait()
	d.finishedAt.Store(time.Now().UnixNano())

	stats := d.Snapshot()
	d.logger.Info("crawl finished",
		zap.String("run_id", stats.RunID),
		zap.String("seed", stats.Seed),
		zap.Int64("processed", stats.Processed),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("code_blocks", stats.CodeBlocks),
		zap.Int64("unvisited", stats.Queued),
		zap.Duration("elapsed", stats.Elapsed),
		zap.Bool("deadline_reached", stats.DeadlineReached),
	)
	return stats
}

func (d *Dispatcher) loop(ctx context.Context) {
	for {
		entry, ok := d.frontier.Take(ctx)
		if !ok {
			return
		}
		metrics.IncActiveWorkers()
		res := d.processor.Process(ctx, entry)
		metrics.DecActiveWorkers()
		d.record(res)
		d.frontier.Done(entry)
	}
}

func (d *Dispatcher) record(res worker.Result) {
	d.codeBlocks.Add(int64(res.CodeBlocks))
	switch res.Outcome {
	case crawler.OutcomeSkipped:
		d.skipped.Add(1)
	case crawler.OutcomeSaved:
		d.processed.Add(1)
	default:
		d.processed.Add(1)
		d.failed.Add(1)
	}
}

// Snapshot returns live counters; it is safe to call while Run is active.
func (d *Dispatcher) Snapshot() crawler.Stats {
	fs := d.frontier.Stats()
	stats := crawler.Stats{
		RunID:           d.cfg.RunID,
		Seed:            d.frontier.Seed(),
		Processed:       d.processed.Load(),
		Failed:          d.failed.Load(),
		Skipped:         d.skipped.Load(),
		Queued:          int64(fs.Queued),
		InFlight:        int64(fs.InFlight),
		CodeBlocks:      d.codeBlocks.Load(),
		DeadlineReached: d.deadline.Load(),
	}
	started := d.startedAt.Load()
	finished := d.finishedAt.Load()
	switch {
	case started == 0:
	case finished != 0:
		stats.Elapsed = time.Duration(finished - started)
		stats.Done = true
	default:
		stats.Elapsed = time.Since(time.Unix(0, started))
	}
	return stats
}
