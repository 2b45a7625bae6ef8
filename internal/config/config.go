package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration, loaded from an
// optional YAML file with environment variables taking precedence.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// AnalyticsConfig holds the analytic policy knobs that are business
// decisions rather than algorithm contracts.
type AnalyticsConfig struct {
	// Customer value tier cutoffs, highest first.
	TierVIP    float64 `yaml:"tier_vip" envconfig:"TIER_VIP"`
	TierHigh   float64 `yaml:"tier_high" envconfig:"TIER_HIGH"`
	TierMedium float64 `yaml:"tier_medium" envconfig:"TIER_MEDIUM"`

	// Outlier detection threshold in standard deviations.
	OutlierSigma float64 `yaml:"outlier_sigma" envconfig:"OUTLIER_SIGMA"`

	// Trailing window (months) for the monthly trend moving average.
	TrendWindow int `yaml:"trend_window" envconfig:"TREND_WINDOW"`

	// RFM reference date, "2006-01-02". Empty means: derive it from the
	// latest transaction in the dataset so results stay deterministic.
	ReferenceDate string `yaml:"reference_date" envconfig:"REFERENCE_DATE"`

	// Validator policy: drop flagged (age / arithmetic) rows instead of
	// only reporting them.
	ExcludeFlagged bool `yaml:"exclude_flagged" envconfig:"EXCLUDE_FLAGGED"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	InputCSV   string `yaml:"input_csv" envconfig:"INPUT_CSV"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
}

// defaultConfig is the baseline configuration. Defaults live here rather
// than in envconfig tags so that file values are not clobbered when the
// corresponding env var is unset.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Analytics: AnalyticsConfig{
			TierVIP:      2000,
			TierHigh:     1000,
			TierMedium:   500,
			OutlierSigma: 2,
			TrendWindow:  3,
		},
		Paths: PathsConfig{
			InputCSV:   "data/transactions.csv",
			ReportsDir: "data/reports",
		},
	}
}

// Load builds the configuration in three layers: defaults, then the YAML
// file (if present), then RETAIL_* environment variables on top.
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process("RETAIL", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the engine would reject
// later anyway; failing at startup gives a better error.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Analytics.OutlierSigma <= 0 {
		return fmt.Errorf("outlier sigma must be positive, got %g", c.Analytics.OutlierSigma)
	}
	if c.Analytics.TrendWindow <= 0 {
		return fmt.Errorf("trend window must be positive, got %d", c.Analytics.TrendWindow)
	}
	if !(c.Analytics.TierMedium > 0 &&
		c.Analytics.TierHigh > c.Analytics.TierMedium &&
		c.Analytics.TierVIP > c.Analytics.TierHigh) {
		return fmt.Errorf("tier thresholds must satisfy 0 < medium < high < vip")
	}
	if c.Analytics.ReferenceDate != "" {
		if _, err := time.Parse("2006-01-02", c.Analytics.ReferenceDate); err != nil {
			return fmt.Errorf("invalid reference date %q: %w", c.Analytics.ReferenceDate, err)
		}
	}
	return nil
}

// ParsedReferenceDate parses the configured RFM reference date. The
// boolean is false when no date is configured.
func (a AnalyticsConfig) ParsedReferenceDate() (time.Time, bool, error) {
	if a.ReferenceDate == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", a.ReferenceDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid reference date %q: %w", a.ReferenceDate, err)
	}
	return t.UTC(), true, nil
}
