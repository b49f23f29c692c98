// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Console   ConsoleConfig   `mapstructure:"console" yaml:"console"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry"`
	Inventory InventoryConfig `mapstructure:"inventory" yaml:"inventory"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string `mapstructure:"args" yaml:"args"`
	WindowWidth     int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int      `mapstructure:"window_height" yaml:"window_height"`
}

// ConsoleConfig tunes how the engine talks to the cloud console.
type ConsoleConfig struct {
	// AuthTimeout bounds how long Acquire waits for the external sign-in
	// handshake to land the browser on the authenticated domain.
	AuthTimeout time.Duration `mapstructure:"auth_timeout" yaml:"auth_timeout"`
	// AuthPollInterval is the cadence at which the live URL is re-checked
	// while waiting for authentication.
	AuthPollInterval time.Duration `mapstructure:"auth_poll_interval" yaml:"auth_poll_interval"`
	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ElementTimeout bounds one wait-for-element call.
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	// PollInterval is the executor's wait-condition polling cadence.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// PostClickGrace is how long a click strategy waits for its
	// post-condition before the next strategy is tried.
	PostClickGrace time.Duration `mapstructure:"post_click_grace" yaml:"post_click_grace"`
}

// CaptureConfig controls artifact production.
type CaptureConfig struct {
	OutputDir        string        `mapstructure:"output_dir" yaml:"output_dir"`
	FullPage         bool          `mapstructure:"full_page" yaml:"full_page"`
	MaxPages         int           `mapstructure:"max_pages" yaml:"max_pages"`
	StabilizeWait    time.Duration `mapstructure:"stabilize_wait" yaml:"stabilize_wait"`
	StabilizeRetries int           `mapstructure:"stabilize_retries" yaml:"stabilize_retries"`
}

// RetryConfig bounds the self-healing controller.
type RetryConfig struct {
	// AttemptsPerTier caps retries of one navigation strategy before the
	// controller advances to the next.
	AttemptsPerTier int `mapstructure:"attempts_per_tier" yaml:"attempts_per_tier"`
	// TimeoutStretch multiplies the element timeout on a same-tier retry
	// after a timeout classification.
	TimeoutStretch float64 `mapstructure:"timeout_stretch" yaml:"timeout_stretch"`
	// TotalBudget is the wall-clock ceiling for one resolve call across all
	// tiers and retries.
	TotalBudget time.Duration `mapstructure:"total_budget" yaml:"total_budget"`
}

// InventoryConfig configures the AWS resource enumeration collaborator.
type InventoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Static credentials are optional; when empty the environment's ambient
	// credentials are used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"-"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"-"`
	SessionToken    string `mapstructure:"session_token" yaml:"-"`
}

// DatabaseConfig holds the optional evidence-index connection details.
// An empty URL disables the index; artifacts then live on the filesystem only.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "consnap")
	v.SetDefault("logger.log_file", "consnap.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	// Evidence capture usually runs headed: the human completes MFA in the
	// same window the engine then drives.
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	// -- Console --
	v.SetDefault("console.auth_timeout", "5m")
	v.SetDefault("console.auth_poll_interval", "2s")
	v.SetDefault("console.navigation_timeout", "45s")
	v.SetDefault("console.element_timeout", "15s")
	v.SetDefault("console.poll_interval", "250ms")
	v.SetDefault("console.post_click_grace", "3s")

	// -- Capture --
	v.SetDefault("capture.output_dir", "~/consnap-evidence")
	v.SetDefault("capture.full_page", true)
	v.SetDefault("capture.max_pages", 20)
	v.SetDefault("capture.stabilize_wait", "750ms")
	v.SetDefault("capture.stabilize_retries", 8)

	// -- Retry --
	v.SetDefault("retry.attempts_per_tier", 2)
	v.SetDefault("retry.timeout_stretch", 1.5)
	v.SetDefault("retry.total_budget", "4m")

	// -- Inventory --
	v.SetDefault("inventory.enabled", true)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("database.url", "CONSNAP_DATABASE_URL")
	v.BindEnv("inventory.access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("inventory.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("inventory.session_token", "AWS_SESSION_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Console.AuthTimeout <= 0 {
		return fmt.Errorf("console.auth_timeout must be a positive duration")
	}
	if c.Console.PollInterval <= 0 {
		return fmt.Errorf("console.poll_interval must be a positive duration")
	}
	if c.Console.ElementTimeout < c.Console.PollInterval {
		return fmt.Errorf("console.element_timeout must not be shorter than console.poll_interval")
	}
	if c.Retry.AttemptsPerTier <= 0 {
		return fmt.Errorf("retry.attempts_per_tier must be a positive integer")
	}
	if c.Retry.TimeoutStretch < 1.0 {
		return fmt.Errorf("retry.timeout_stretch must be >= 1.0")
	}
	if c.Retry.TotalBudget <= 0 {
		return fmt.Errorf("retry.total_budget must be a positive duration")
	}
	if c.Capture.MaxPages <= 0 {
		return fmt.Errorf("capture.max_pages must be a positive integer")
	}
	if c.Capture.OutputDir == "" {
		return fmt.Errorf("capture.output_dir is required")
	}
	return nil
}

// ResolveOutputDir expands a leading ~ in the capture output directory.
func (c *Config) ResolveOutputDir() (string, error) {
	dir, err := homedir.Expand(c.Capture.OutputDir)
	if err != nil {
		return "", fmt.Errorf("expanding capture.output_dir: %w", err)
	}
	return dir, nil
}
