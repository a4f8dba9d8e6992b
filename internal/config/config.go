// Package config loads runtime settings from defaults, an optional file and
// HOUSING_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joelkehle/housing-analyst/internal/aicache"
	"github.com/joelkehle/housing-analyst/internal/llm"
	"github.com/joelkehle/housing-analyst/internal/logging"
	"github.com/joelkehle/housing-analyst/internal/mortgage"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
	"github.com/joelkehle/housing-analyst/internal/telemetry"
)

const EnvPrefix = "HOUSING"

type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Database  DatabaseConfig       `mapstructure:"database"`
	Limits    LimitsConfig         `mapstructure:"limits"`
	Cache     CacheConfig          `mapstructure:"cache"`
	Model     ModelConfig          `mapstructure:"model"`
	Breaker   llm.BreakerConfig    `mapstructure:"breaker"`
	Pipeline  PipelineConfig       `mapstructure:"pipeline"`
	Log       LogConfig            `mapstructure:"log"`
	Telemetry telemetry.Config     `mapstructure:"telemetry"`
	Mortgage  mortgage.Assumptions `mapstructure:"mortgage"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LimitsConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerDay    int `mapstructure:"per_day"`
}

type CacheConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

type ModelConfig struct {
	Name    string        `mapstructure:"name"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	DedupeInFlight bool `mapstructure:"dedupe_in_flight"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "housing.db")

	v.SetDefault("limits.per_minute", ratelimit.DefaultPerMinute)
	v.SetDefault("limits.per_day", ratelimit.DefaultPerDay)
	v.SetDefault("cache.max_size", aicache.DefaultMaxSize)

	v.SetDefault("model.name", llm.DefaultModel)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.timeout", 90*time.Second)

	b := llm.DefaultBreakerConfig()
	v.SetDefault("breaker.name", b.Name)
	v.SetDefault("breaker.max_requests", b.MaxRequests)
	v.SetDefault("breaker.interval", b.Interval)
	v.SetDefault("breaker.timeout", b.Timeout)
	v.SetDefault("breaker.failure_threshold", b.FailureThreshold)
	v.SetDefault("breaker.min_requests", b.MinRequests)

	v.SetDefault("pipeline.dedupe_in_flight", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatJSON)

	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("mortgage.down_payment_percent", mortgage.DefaultDownPaymentPercent)
	v.SetDefault("mortgage.annual_rate_percent", mortgage.DefaultAnnualRatePercent)
	v.SetDefault("mortgage.loan_term_years", mortgage.DefaultLoanTermYears)
	v.SetDefault("mortgage.tax_rate", mortgage.DefaultTaxRate)
}

// Load reads path when it is not empty. A missing explicit file is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigError names the offending setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return &ConfigError{Field: "server.addr", Message: "must not be empty"}
	case strings.TrimSpace(c.Database.Path) == "":
		return &ConfigError{Field: "database.path", Message: "must not be empty"}
	case c.Limits.PerMinute <= 0:
		return &ConfigError{Field: "limits.per_minute", Message: "must be positive"}
	case c.Limits.PerDay < c.Limits.PerMinute:
		return &ConfigError{Field: "limits.per_day", Message: "must be at least limits.per_minute"}
	case c.Cache.MaxSize <= 0:
		return &ConfigError{Field: "cache.max_size", Message: "must be positive"}
	case c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1:
		return &ConfigError{Field: "telemetry.sample_ratio", Message: "must be within [0, 1]"}
	}
	if f := strings.ToLower(c.Log.Format); f != logging.FormatJSON && f != logging.FormatConsole {
		return &ConfigError{Field: "log.format", Message: "must be json or console"}
	}
	return nil
}
