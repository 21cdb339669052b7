package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edgeflare/pgrest/pkg/httputil"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// Config holds application-wide configuration
type Config struct {
	URL           string          `mapstructure:"url"`
	APIKey        string          `mapstructure:"apiKey"`
	AccessToken   string          `mapstructure:"accessToken"`
	Schema        string          `mapstructure:"schema"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	StrictFilters bool            `mapstructure:"strictFilters"`
	Retry         RetryConfig     `mapstructure:"retry"`
	RateLimit     RateLimitConfig `mapstructure:"rateLimit"`
	LogLevel      string          `mapstructure:"logLevel"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"maxAttempts"`
	BaseDelay   time.Duration `mapstructure:"baseDelay"`
	MaxDelay    time.Duration `mapstructure:"maxDelay"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"` // 0 disables the limiter
	Burst int     `mapstructure:"burst"`
}

var ErrMissingURL = errors.New("config: url is required")

// Default returns the configuration used when nothing is set.
func Default() Config {
	retry := httputil.DefaultRetryConfig()
	return Config{
		Timeout: httputil.DefaultTimeout,
		Retry: RetryConfig{
			MaxAttempts: retry.MaxAttempts,
			BaseDelay:   retry.BaseDelay,
			MaxDelay:    retry.MaxDelay,
		},
		RateLimit: RateLimitConfig{Burst: 1},
		LogLevel:  "warn",
	}
}

// SetDefaults registers Default() on v so that environment variables for
// nested keys are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("url", "")
	v.SetDefault("apiKey", "")
	v.SetDefault("accessToken", "")
	v.SetDefault("schema", "")
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("strictFilters", false)
	v.SetDefault("retry.maxAttempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.baseDelay", d.Retry.BaseDelay)
	v.SetDefault("retry.maxDelay", d.Retry.MaxDelay)
	v.SetDefault("rateLimit.rps", d.RateLimit.RPS)
	v.SetDefault("rateLimit.burst", d.RateLimit.Burst)
	v.SetDefault("logLevel", d.LogLevel)
}

// New returns a viper instance reading cfgFile, or pgrest.yaml from
// $HOME/.config or the working directory, and PGREST_* environment
// variables: PGREST_URL, PGREST_APIKEY, PGREST_RETRY_MAXATTEMPTS, ...
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pgrest")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PGREST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Read loads the config file into v. A missing default file is not an error;
// a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Decode unmarshals v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := New(cfgFile)
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("config: retry.maxAttempts must not be negative, got %d", c.Retry.MaxAttempts)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("config: rateLimit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	return nil
}

// HTTPOptions translates the transport settings into httputil options.
func (c *Config) HTTPOptions() []httputil.ClientOption {
	opts := []httputil.ClientOption{httputil.WithTimeout(c.Timeout)}
	if c.Retry.MaxAttempts > 1 {
		opts = append(opts, httputil.WithRetry(httputil.RetryConfig{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.BaseDelay,
			MaxDelay:    c.Retry.MaxDelay,
		}))
	}
	if c.RateLimit.RPS > 0 {
		opts = append(opts, httputil.WithRateLimit(rate.Limit(c.RateLimit.RPS), c.RateLimit.Burst))
	}
	return opts
}
