// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/codecrawler/internal/crawler"
)

// DefaultUserAgent mimics a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
}

// CrawlerConfig governs frontier, worker pool and governor behavior.
type CrawlerConfig struct {
	SeedURLs      []string      `mapstructure:"seed_urls"`
	MaxDepth      int           `mapstructure:"max_depth"`
	Concurrency   int           `mapstructure:"concurrency"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
	Strategy      string        `mapstructure:"strategy"`
	UserAgent     string        `mapstructure:"user_agent"`
	Delay         time.Duration `mapstructure:"delay"`
	SiteDelay     time.Duration `mapstructure:"site_delay"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// HTTPConfig configures the direct strategy and the retry loop.
type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	Method         string        `mapstructure:"method"`
	Body           string        `mapstructure:"body"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
}

// HeadlessConfig configures the rendered strategy.
type HeadlessConfig struct {
	NavTimeout   time.Duration `mapstructure:"nav_timeout"`
	RootSelector string        `mapstructure:"root_selector"`
	Settle       time.Duration `mapstructure:"settle"`
}

// ExtractConfig tunes text and code extraction.
type ExtractConfig struct {
	MinCodeLength     int      `mapstructure:"min_code_length"`
	CodeMarkers       []string `mapstructure:"code_markers"`
	FingerprintPrefix int      `mapstructure:"fingerprint_prefix"`
	MainContent       bool     `mapstructure:"main_content"`
	FenceCodeInText   bool     `mapstructure:"fence_code_in_text"`
}

// OutputConfig sets where records and artifacts are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the optional status server.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags builds a Config from disk, environment and command-line flags.
// Each flag in bindings overrides the config key it is mapped to when set.
func LoadWithFlags(path string, bindings map[string]*pflag.Flag) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for key, flag := range bindings {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.HTTP.Method = strings.ToUpper(strings.TrimSpace(cfg.HTTP.Method))
	cfg.Crawler.Strategy = strings.ToLower(strings.TrimSpace(cfg.Crawler.Strategy))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.seed_urls", []string{})
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.concurrency", 20)
	v.SetDefault("crawler.max_duration", 4*time.Hour)
	v.SetDefault("crawler.strategy", string(crawler.StrategyDirect))
	v.SetDefault("crawler.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.delay", time.Duration(0))
	v.SetDefault("crawler.site_delay", 2*time.Second)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.method", http.MethodGet)
	v.SetDefault("http.body", "")
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_initial", time.Second)
	v.SetDefault("headless.nav_timeout", 20*time.Second)
	v.SetDefault("headless.root_selector", "body")
	v.SetDefault("headless.settle", time.Duration(0))
	v.SetDefault("extract.min_code_length", 15)
	v.SetDefault("extract.code_markers", []string{
		"code", "highlight", "syntax", "language-", "hljs", "prettyprint", "codemirror",
	})
	v.SetDefault("extract.fingerprint_prefix", 4096)
	v.SetDefault("extract.main_content", false)
	v.SetDefault("extract.fence_code_in_text", false)
	v.SetDefault("output.dir", "data")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.listen_addr", "")
}

// Validate enforces required values and reasonable limits.
// Seeds are checked separately by RequireSeeds since not every command needs them.
func (c Config) Validate() error {
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxDuration <= 0 {
		return fmt.Errorf("crawler.max_duration must be > 0")
	}
	if !crawler.Strategy(c.Crawler.Strategy).Valid() {
		return fmt.Errorf("crawler.strategy must be %q or %q", crawler.StrategyDirect, crawler.StrategyRendered)
	}
	if c.Crawler.Delay < 0 || c.Crawler.SiteDelay < 0 {
		return fmt.Errorf("crawler delays must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.Method != http.MethodGet && c.HTTP.Method != http.MethodPost {
		return fmt.Errorf("http.method must be GET or POST")
	}
	if c.HTTP.Method == http.MethodPost && c.Strategy() == crawler.StrategyRendered {
		return fmt.Errorf("http.method POST is only supported with the direct strategy")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.BackoffInitial <= 0 {
		return fmt.Errorf("http.backoff_initial must be > 0")
	}
	if c.Headless.NavTimeout <= 0 {
		return fmt.Errorf("headless.nav_timeout must be > 0")
	}
	if strings.TrimSpace(c.Headless.RootSelector) == "" {
		return fmt.Errorf("headless.root_selector is required")
	}
	if c.Extract.MinCodeLength < 0 {
		return fmt.Errorf("extract.min_code_length must be >= 0")
	}
	if len(c.Extract.CodeMarkers) == 0 {
		return fmt.Errorf("extract.code_markers must not be empty")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}

// RequireSeeds reports an error when no seed URL is configured.
func (c Config) RequireSeeds() error {
	if len(c.Crawler.SeedURLs) == 0 {
		return fmt.Errorf("at least one seed url is required (crawler.seed_urls or command arguments)")
	}
	return nil
}

// Strategy returns the configured fetch strategy.
func (c Config) Strategy() crawler.Strategy {
	return crawler.Strategy(c.Crawler.Strategy)
}
