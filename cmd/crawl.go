package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/api"
	"github.com/JakeFAU/codecrawler/internal/config"
	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/dedup"
	"github.com/JakeFAU/codecrawler/internal/dispatcher"
	"github.com/JakeFAU/codecrawler/internal/extract"
	"github.com/JakeFAU/codecrawler/internal/fetcher"
	collyfetcher "github.com/JakeFAU/codecrawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/codecrawler/internal/fetcher/headless"
	"github.com/JakeFAU/codecrawler/internal/frontier"
	"github.com/JakeFAU/codecrawler/internal/id/uuid"
	"github.com/JakeFAU/codecrawler/internal/metrics"
	"github.com/JakeFAU/codecrawler/internal/policy/ratelimit"
	"github.com/JakeFAU/codecrawler/internal/policy/robots"
	"github.com/JakeFAU/codecrawler/internal/sink"
	"github.com/JakeFAU/codecrawler/internal/worker"
)

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawls each seed URL and extracts its code examples",
		Long: `Crawls every seed in turn, following links that stay on the seed's
scheme and host up to the configured depth. Seeds given as arguments replace
crawler.seed_urls from the configuration.`,
		RunE: runCrawlCommand,
	}
	f := cmd.Flags()
	f.Int("max-depth", 0, "deepest link level followed from a seed")
	f.Int("concurrency", 0, "number of concurrent workers")
	f.Duration("max-duration", 0, "wall-clock budget per seed")
	f.String("strategy", "", "fetch strategy: direct or rendered")
	f.String("user-agent", "", "User-Agent header sent with every request")
	f.Duration("delay", 0, "minimum spacing between requests to one host")
	f.Duration("site-delay", 0, "pause between seeds")
	f.Bool("respect-robots", false, "honor robots.txt")
	f.Duration("timeout", 0, "per-request timeout")
	f.String("method", "", "HTTP method for the direct strategy (GET or POST)")
	f.String("body", "", "request payload sent with POST")
	f.Int("max-attempts", 0, "fetch attempts per URL")
	f.Int("min-code", 0, "shortest code block kept, in characters")
	f.Bool("main-content", false, "limit document text to the main content container")
	f.String("output-dir", "", "directory receiving records and artifacts")
	f.String("listen", "", "address for the status server; empty disables it")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config
	logger := appInstance.Logger
	if len(args) > 0 {
		cfg.Crawler.SeedURLs = args
	}
	if err := cfg.RequireSeeds(); err != nil {
		return err
	}
	for _, seed := range cfg.Crawler.SeedURLs {
		if _, err := crawler.HostURL(seed); err != nil {
			return fmt.Errorf("invalid seed %q: %w", seed, err)
		}
	}

	store, err := sink.NewStore(cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("prepare output directory: %w", err)
	}
	strategy, closeStrategy, err := buildStrategy(cfg)
	if err != nil {
		return err
	}
	defer closeStrategy()

	metrics.Init()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs := api.NewRegistry()
	serverDone := make(chan struct{})
	if addr := cfg.Server.ListenAddr; addr != "" {
		server := api.NewServer(runs, logger)
		go func() {
			defer close(serverDone)
			if err := server.Serve(ctx, addr); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
	} else {
		close(serverDone)
	}

	c := &crawl{
		cfg:    cfg,
		logger: logger,
		store:  store,
		pages: fetcher.NewRetrying(strategy, fetcher.RetryConfig{
			Strategy:    cfg.Strategy(),
			MaxAttempts: cfg.HTTP.MaxAttempts,
			Backoff:     fetcher.Backoff{Base: cfg.HTTP.BackoffInitial},
		},
			fetcher.WithLimiter(ratelimit.New(ratelimit.Config{Delay: cfg.Crawler.Delay})),
			fetcher.WithLogger(logger),
		),
		robots:  robots.New(cfg.Crawler.RespectRobots, cfg.Crawler.UserAgent, nil, logger),
		ids:     uuid.New(),
		runs:    runs,
		outputs: make(map[string]*sink.Output),
	}
	defer c.close()

	for i, seed := range cfg.Crawler.SeedURLs {
		if i > 0 {
			if err := (fetcher.TimerPauser{}).Pause(ctx, cfg.Crawler.SiteDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		stats, err := c.crawlSeed(ctx, seed)
		if err != nil {
			logger.Error("seed crawl aborted", zap.String("seed", seed), zap.Error(err))
			continue
		}
		printSummary(cmd.OutOrStdout(), stats)
	}

	stop()
	<-serverDone
	logger.Info("crawl command finished", zap.Int("seeds", len(cfg.Crawler.SeedURLs)))
	return nil
}

// crawl holds what is shared between the seeds of one invocation.
// Visited URLs and code fingerprints belong to each seed's run.
type crawl struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *sink.Store
	pages   crawler.PageFetcher
	robots  crawler.RobotsPolicy
	ids     crawler.IDGenerator
	runs    *api.Registry
	outputs map[string]*sink.Output
}

func (c *crawl) crawlSeed(ctx context.Context, seed string) (crawler.Stats, error) {
	out, err := c.output(seed)
	if err != nil {
		return crawler.Stats{}, err
	}
	f, err := frontier.New(seed, c.cfg.Crawler.MaxDepth, dedup.New[string](), frontier.WithLogger(c.logger))
	if err != nil {
		return crawler.Stats{}, fmt.Errorf("build frontier: %w", err)
	}
	runID, err := c.ids.NewID()
	if err != nil {
		return crawler.Stats{}, err
	}
	logger := c.logger.With(zap.String("run_id", runID))
	w := worker.New(f, c.pages, newExtractor(c.cfg), out, c.robots, worker.Config{MaxDepth: c.cfg.Crawler.MaxDepth}, logger)
	d := dispatcher.New(f, w, dispatcher.Config{
		RunID:       runID,
		Concurrency: c.cfg.Crawler.Concurrency,
		MaxDuration: c.cfg.Crawler.MaxDuration,
	}, logger)
	c.runs.Add(d)
	return d.Run(ctx), nil
}

// output returns the sink for the seed's domain, opening it on first use.
func (c *crawl) output(seed string) (*sink.Output, error) {
	domain := crawler.DomainSafe(seed)
	if out, ok := c.outputs[domain]; ok {
		return out, nil
	}
	out, err := sink.NewOutput(c.store, seed, sink.WithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("open output for %s: %w", domain, err)
	}
	c.outputs[domain] = out
	return out, nil
}

func (c *crawl) close() {
	for domain, out := range c.outputs {
		if err := out.Close(); err != nil {
			c.logger.Warn("close output failed", zap.String("domain", domain), zap.Error(err))
		}
	}
}

// newExtractor builds an extractor with a fresh code fingerprint set.
func newExtractor(cfg config.Config) *extract.Extractor {
	return extract.New(extract.Config{
		MinCodeLength:     cfg.Extract.MinCodeLength,
		CodeMarkers:       cfg.Extract.CodeMarkers,
		FingerprintPrefix: cfg.Extract.FingerprintPrefix,
		MainContent:       cfg.Extract.MainContent,
		FenceCodeInText:   cfg.Extract.FenceCodeInText,
	}, dedup.New[uint64]())
}

func buildStrategy(cfg config.Config) (crawler.Fetcher, func(), error) {
	if cfg.Strategy() == crawler.StrategyRendered {
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Crawler.Concurrency,
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
			RootSelector:      cfg.Headless.RootSelector,
			Settle:            cfg.Headless.Settle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		return headless, headless.Close, nil
	}
	var body []byte
	if cfg.HTTP.Body != "" {
		body = []byte(cfg.HTTP.Body)
	}
	direct := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
		Method:    cfg.HTTP.Method,
		Body:      body,
	})
	return direct, func() {}, nil
}

func printSummary(w io.Writer, stats crawler.Stats) {
	status := "complete"
	if stats.DeadlineReached {
		status = "deadline reached"
	}
	fmt.Fprintf(w, "%s: processed %d pages (%d failed, %d skipped), %d code blocks, %d unvisited, %s in %s\n",
		stats.Seed,
		stats.Processed,
		stats.Failed,
		stats.Skipped,
		stats.CodeBlocks,
		stats.Queued,
		status,
		stats.Elapsed.Round(time.Millisecond),
	)
}
