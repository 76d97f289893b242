// Root configuration for the scenario runner. Loaded through Viper so values
// can come from config.yaml, environment variables (ENCORE_*) or flags.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Target  TargetConfig  `mapstructure:"target"`
	Browser BrowserConfig `mapstructure:"browser"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Store   StoreConfig   `mapstructure:"store"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug string `mapstructure:"debug"`
	Info  string `mapstructure:"info"`
	Warn  string `mapstructure:"warn"`
	Error string `mapstructure:"error"`
	Fatal string `mapstructure:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"`
	AddSource   bool        `mapstructure:"add_source"`
	ServiceName string      `mapstructure:"service_name"`
	LogFile     string      `mapstructure:"log_file"`
	MaxSize     int         `mapstructure:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups"`
	MaxAge      int         `mapstructure:"max_age"`
	Compress    bool        `mapstructure:"compress"`
	Colors      ColorConfig `mapstructure:"colors"`
}

// TargetConfig identifies the application under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ViewportConfig is a browser viewport size in CSS pixels.
type ViewportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless"`
	NoSandbox       bool           `mapstructure:"no_sandbox"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors"`
	Viewport        ViewportConfig `mapstructure:"viewport"`
}

// RunnerConfig holds settings for scenario execution.
type RunnerConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout"`
	NetworkQuiet      time.Duration `mapstructure:"network_quiet"`
	ScreenshotDir     string        `mapstructure:"screenshot_dir"`
	SearchTerm        string        `mapstructure:"search_term"`

	// FailOnStepErrors makes a run with any failed step outcome exit
	// non-zero even when no fatal error occurred.
	FailOnStepErrors bool `mapstructure:"fail_on_step_errors"`

	// ResponsiveViewports are exercised sequentially after the main run,
	// each in a fresh session.
	ResponsiveViewports []ViewportConfig `mapstructure:"responsive_viewports"`
}

// StoreConfig holds settings for the optional run-history database.
// Persistence is skipped entirely when URL is empty.
type StoreConfig struct {
	URL string `mapstructure:"url"`
}

// SetDefaults registers default values so the runner works with no config
// file at all.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "encore-e2e")
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("target.base_url", "http://localhost:5173")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 800)

	v.SetDefault("runner.navigation_timeout", 30*time.Second)
	v.SetDefault("runner.element_timeout", 5*time.Second)
	v.SetDefault("runner.network_quiet", 500*time.Millisecond)
	v.SetDefault("runner.screenshot_dir", "test_screenshots")
	v.SetDefault("runner.search_term", "林俊杰")
	v.SetDefault("runner.fail_on_step_errors", false)
	v.SetDefault("runner.responsive_viewports", []map[string]interface{}{
		{"width": 768, "height": 1024},
		{"width": 375, "height": 812},
	})
}

// Load unmarshals the Viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the runner cannot execute against.
func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url must not be empty")
	}
	if _, err := url.Parse(c.Target.BaseURL); err != nil {
		return fmt.Errorf("target.base_url is not a valid URL: %w", err)
	}
	if c.Runner.NavigationTimeout <= 0 {
		return fmt.Errorf("runner.navigation_timeout must be positive")
	}
	if c.Runner.ElementTimeout <= 0 {
		return fmt.Errorf("runner.element_timeout must be positive")
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport dimensions must be positive")
	}
	return nil
}
