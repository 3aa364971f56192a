// Package cmd defines the CLI commands for the codecrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/config"
	"github.com/JakeFAU/codecrawler/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App carries what every subcommand needs.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Logger.Sync()
}

// flagKeys maps command-line flags onto config keys. Flags only override
// the config when they are set explicitly.
var flagKeys = map[string]string{
	"max-depth":      "crawler.max_depth",
	"concurrency":    "crawler.concurrency",
	"max-duration":   "crawler.max_duration",
	"strategy":       "crawler.strategy",
	"user-agent":     "crawler.user_agent",
	"delay":          "crawler.delay",
	"site-delay":     "crawler.site_delay",
	"respect-robots": "crawler.respect_robots",
	"timeout":        "http.timeout",
	"method":         "http.method",
	"body":           "http.body",
	"max-attempts":   "http.max_attempts",
	"min-code":       "extract.min_code_length",
	"main-content":   "extract.main_content",
	"output-dir":     "output.dir",
	"listen":         "server.listen_addr",
	"log-level":      "logging.level",
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(_ context.Context, flags *pflag.FlagSet) (*App, error) {
	bindings := make(map[string]*pflag.Flag)
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			bindings[key] = f
		}
	})
	cfg, err := config.LoadWithFlags(cfgFile, bindings)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Logger: logger}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codecrawler",
		Short: "Crawls documentation sites and extracts their code examples.",
		Long: `codecrawler walks a website from one or more seed URLs, stays on the
seed's host, and writes the page HTML, readable text and every distinct code
block it finds to a local output directory.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
