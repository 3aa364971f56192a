// Package worker implements the per-entry crawl pipeline.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// MaxDepth is the deepest entry fetched; links are followed only from
	// entries shallower than it.
	MaxDepth int
}

// Result reports what processing one entry produced.
type Result struct {
	Outcome    crawler.Outcome
	CodeBlocks int
	Admitted   int
	// Bytes is the size of a successfully fetched body.
	Bytes int
}

// Worker fetches an entry, persists what it yields, and feeds discovered
// links back to the frontier.
type Worker struct {
	frontier  crawler.Frontier
	fetcher   crawler.PageFetcher
	extractor crawler.Extractor
	sink      crawler.PageSink
	robots    crawler.RobotsPolicy
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. robots may be nil.
func New(
	frontier crawler.Frontier,
	fetcher crawler.PageFetcher,
	extractor crawler.Extractor,
	sink crawler.PageSink,
	robots crawler.RobotsPolicy,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		frontier:  frontier,
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		robots:    robots,
		cfg:       cfg,
		logger:    logger.Named("worker"),
	}
}

// Process runs entry to a terminal outcome. Failures are logged and
// reported through the outcome; they never abort the crawl.
func (w *Worker) Process(ctx context.Context, entry crawler.FrontierEntry) Result {
	res := w.process(ctx, entry)
	metrics.ObservePage(entry.URL, string(res.Outcome), res.Bytes)
	return res
}

func (w *Worker) process(ctx context.Context, entry crawler.FrontierEntry) Result {
	if entry.Depth > w.cfg.MaxDepth {
		w.logger.Debug("entry beyond max depth", zap.String("url", entry.URL), zap.Int("depth", entry.Depth))
		return Result{Outcome: crawler.OutcomeSkipped}
	}
	if w.robots != nil && !w.robots.Allowed(ctx, entry.URL) {
		w.logger.Info("fetch disallowed by robots.txt", zap.String("url", entry.URL))
		return Result{Outcome: crawler.OutcomeSkipped}
	}

	result := w.fetcher.Fetch(ctx, entry.URL)
	if err := w.sink.SavePage(ctx, result); err != nil {
		w.logger.Error("persist html record failed", zap.String("url", entry.URL), zap.Error(err))
		return Result{Outcome: crawler.OutcomePersistFailed}
	}
	if !result.StatusOK {
		w.logger.Warn("fetch failed",
			zap.String("url", entry.URL),
			zap.Int("attempts", result.Attempts),
			zap.Int("status", result.StatusCode),
			zap.Error(result.Err),
		)
		return Result{Outcome: crawler.OutcomeFetchFailed}
	}
	out := Result{Bytes: len(result.Body)}

	extraction, err := w.extractor.Extract(result)
	if err != nil {
		w.logger.Warn("extraction failed", zap.String("url", entry.URL), zap.Error(err))
		out.Outcome = crawler.OutcomeExtractFailed
		return out
	}

	saved, err := w.persist(ctx, entry.URL, extraction)
	out.CodeBlocks = saved
	if err != nil {
		w.logger.Error("persist extraction failed", zap.String("url", entry.URL), zap.Error(err))
		out.Outcome = crawler.OutcomePersistFailed
		return out
	}

	if entry.Depth < w.cfg.MaxDepth {
		out.Admitted = w.admitLinks(extraction, entry.Depth+1)
		if out.Admitted > 0 {
			w.logger.Info("admitted links",
				zap.String("url", entry.URL),
				zap.Int("depth", entry.Depth),
				zap.Int("admitted", out.Admitted),
				zap.Int("links", len(extraction.Links)),
			)
		}
	}
	out.Outcome = crawler.OutcomeSaved
	w.logger.Debug("page processed",
		zap.String("url", entry.URL),
		zap.Int("depth", entry.Depth),
		zap.Int("code_blocks", out.CodeBlocks),
	)
	return out
}

func (w *Worker) persist(ctx context.Context, pageURL string, extraction crawler.Extraction) (int, error) {
	if err := w.sink.SaveDocument(ctx, extraction.Document); err != nil {
		return 0, fmt.Errorf("save document: %w", err)
	}
	saved := 0
	for _, block := range extraction.CodeBlocks {
		if err := w.sink.SaveCodeBlock(ctx, pageURL, block); err != nil {
			return saved, fmt.Errorf("save code block %s: %w", block.Name, err)
		}
		metrics.ObserveCodeBlock(block.Language)
		saved++
	}
	return saved, nil
}

func (w *Worker) admitLinks(extraction crawler.Extraction, depth int) int {
	admitted := 0
	for _, href := range extraction.Links {
		if _, ok := w.frontier.Admit(extraction.BaseURL, href, depth); ok {
			admitted++
		}
	}
	return admitted
}
