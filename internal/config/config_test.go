package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/JakeFAU/codecrawler/internal/crawler"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.MaxDepth != 3 || cfg.Crawler.Concurrency != 20 {
		t.Fatalf("unexpected crawler defaults: %+v", cfg.Crawler)
	}
	if cfg.Crawler.MaxDuration != 4*time.Hour {
		t.Fatalf("expected 4h max duration, got %v", cfg.Crawler.MaxDuration)
	}
	if cfg.Strategy() != crawler.StrategyDirect {
		t.Fatalf("expected direct strategy, got %q", cfg.Strategy())
	}
	if cfg.HTTP.MaxAttempts != 3 || cfg.HTTP.BackoffInitial != time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.HTTP)
	}
	if cfg.Extract.MinCodeLength != 15 || len(cfg.Extract.CodeMarkers) != 7 {
		t.Fatalf("unexpected extract defaults: %+v", cfg.Extract)
	}
	if err := cfg.RequireSeeds(); err == nil {
		t.Fatal("expected missing seeds to be reported")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawler:
  seed_urls: ["https://docs.example.com/guide/"]
  max_depth: 1
  concurrency: 6
  max_duration: 90s
  strategy: Rendered
  user_agent: real-agent
  delay: 250ms
  respect_robots: true
http:
  timeout: 45s
  max_attempts: 5
  backoff_initial: 100ms
headless:
  nav_timeout: 30s
  root_selector: main
extract:
  min_code_length: 10
  code_markers: [code, highlight]
output:
  dir: out
logging:
  development: false
  level: debug
server:
  listen_addr: ":9090"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Crawler.SeedURLs) != 1 || cfg.Crawler.SeedURLs[0] != "https://docs.example.com/guide/" {
		t.Fatalf("expected seed urls to load, got %v", cfg.Crawler.SeedURLs)
	}
	if cfg.Crawler.MaxDepth != 1 || cfg.Crawler.Concurrency != 6 || !cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Crawler.MaxDuration != 90*time.Second || cfg.Crawler.Delay != 250*time.Millisecond {
		t.Fatalf("expected durations to parse: %+v", cfg.Crawler)
	}
	if cfg.Strategy() != crawler.StrategyRendered {
		t.Fatalf("expected strategy to be normalized, got %q", cfg.Crawler.Strategy)
	}
	if cfg.HTTP.Timeout != 45*time.Second || cfg.HTTP.MaxAttempts != 5 || cfg.HTTP.Method != "GET" {
		t.Fatalf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Headless.RootSelector != "main" || cfg.Extract.MinCodeLength != 10 {
		t.Fatalf("unexpected headless/extract config: %+v %+v", cfg.Headless, cfg.Extract)
	}
	if cfg.Output.Dir != "out" || cfg.Logging.Development || cfg.Server.ListenAddr != ":9090" {
		t.Fatalf("unexpected output/logging/server config: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadWithFlagsOverridesFile(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("crawl", pflag.ContinueOnError)
	flags.Int("max-depth", 3, "")
	flags.String("strategy", "direct", "")
	if err := flags.Parse([]string{"--max-depth", "7"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadWithFlags("", map[string]*pflag.Flag{
		"crawler.max_depth": flags.Lookup("max-depth"),
		"crawler.strategy":  flags.Lookup("strategy"),
		"crawler.missing":   nil,
	})
	if err != nil {
		t.Fatalf("LoadWithFlags() error = %v", err)
	}
	if cfg.Crawler.MaxDepth != 7 {
		t.Fatalf("expected flag override, got %d", cfg.Crawler.MaxDepth)
	}
	if cfg.Strategy() != crawler.StrategyDirect {
		t.Fatalf("expected unchanged flag to keep default, got %q", cfg.Crawler.Strategy)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative depth", func(c *Config) { c.Crawler.MaxDepth = -1 }, "crawler.max_depth"},
		{"invalid concurrency", func(c *Config) { c.Crawler.Concurrency = 0 }, "crawler.concurrency"},
		{"invalid duration", func(c *Config) { c.Crawler.MaxDuration = 0 }, "crawler.max_duration"},
		{"unknown strategy", func(c *Config) { c.Crawler.Strategy = "telnet" }, "crawler.strategy"},
		{"negative delay", func(c *Config) { c.Crawler.Delay = -time.Second }, "delays"},
		{"invalid timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"invalid method", func(c *Config) { c.HTTP.Method = "PUT" }, "http.method"},
		{"post with rendered", func(c *Config) {
			c.HTTP.Method = "POST"
			c.Crawler.Strategy = "rendered"
		}, "direct strategy"},
		{"invalid attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }, "http.max_attempts"},
		{"negative backoff", func(c *Config) { c.HTTP.BackoffInitial = -1 }, "http.backoff_initial"},
		{"zero backoff", func(c *Config) { c.HTTP.BackoffInitial = 0 }, "http.backoff_initial"},
		{"invalid nav timeout", func(c *Config) { c.Headless.NavTimeout = 0 }, "headless.nav_timeout"},
		{"blank selector", func(c *Config) { c.Headless.RootSelector = " " }, "headless.root_selector"},
		{"negative min code", func(c *Config) { c.Extract.MinCodeLength = -1 }, "extract.min_code_length"},
		{"no markers", func(c *Config) { c.Extract.CodeMarkers = nil }, "extract.code_markers"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			cfg.Extract.CodeMarkers = append([]string(nil), base.Extract.CodeMarkers...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
