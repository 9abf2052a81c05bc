// Package config loads the process-wide PostGrid client settings.
//
// Settings are read once, from (lowest to highest precedence) built-in
// defaults, an optional YAML file named by POSTGRID_CONFIG_FILE, a .env file
// in the working directory and the process environment. The result is cached
// for the lifetime of the process.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/printmail/postgrid-go/internal/apierrors"
)

// Defaults.
const (
	DefaultBaseURL    = "https://api.postgrid.com/print-mail/v1/"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRateLimit  = 50
)

// Environment variable names.
const (
	EnvAPIKey     = "POSTGRID_API_KEY"
	EnvBaseURL    = "POSTGRID_BASE_URL"
	EnvTimeout    = "POSTGRID_TIMEOUT"
	EnvMaxRetries = "POSTGRID_MAX_RETRIES"
	EnvRateLimit  = "POSTGRID_RATE_LIMIT"
	EnvRedisURL   = "POSTGRID_REDIS_URL"
	EnvDebug      = "POSTGRID_DEBUG"
	EnvConfigFile = "POSTGRID_CONFIG_FILE"
)

// Config holds the client settings. It is not modified after loading.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  int
	RedisURL   string
	Debug      bool
}

// Default returns a Config with every optional field at its default.
func Default() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RateLimit:  DefaultRateLimit,
	}
}

// Validate checks the invariants every client relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		e := apierrors.Configuration("%s is required", EnvAPIKey)
		e.Err = apierrors.ErrMissingAPIKey
		return e
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apierrors.Configuration("base URL %q is not an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return apierrors.Configuration("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return apierrors.Configuration("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RateLimit <= 0 {
		return apierrors.Configuration("rate limit must be positive, got %d", c.RateLimit)
	}
	return nil
}

var (
	loadOnce sync.Once
	loaded   *Config
	loadErr  error
)

// Load returns the process-wide configuration. The first call reads the
// environment; later calls return the identical value.
func Load() (*Config, error) {
	loadOnce.Do(func() {
		// A missing .env is normal; real environment variables always win.
		_ = godotenv.Load()
		loaded, loadErr = FromEnv(os.LookupEnv)
	})
	return loaded, loadErr
}

// FromEnv builds a validated Config from lookup without caching.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path, ok := lookup(EnvConfigFile); ok && path != "" {
		if err := cfg.mergeFile(path, lookup); err != nil {
			return nil, err
		}
	}

	if v, ok := lookup(EnvAPIKey); ok {
		cfg.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return nil, apierrors.Configuration("%s: %v", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup(EnvMaxRetries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, apierrors.Configuration("%s: %v", EnvMaxRetries, err)
		}
		cfg.MaxRetries = n
	}
	if v, ok := lookup(EnvRateLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, apierrors.Configuration("%s: %v", EnvRateLimit, err)
		}
		cfg.RateLimit = n
	}
	if v, ok := lookup(EnvRedisURL); ok {
		cfg.RedisURL = v
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, apierrors.Configuration("%s: %v", EnvDebug, err)
		}
		cfg.Debug = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fileConfig mirrors Config with a string timeout so YAML accepts both
// "30" and "30s".
type fileConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
	MaxRetries *int   `yaml:"max_retries"`
	RateLimit  *int   `yaml:"rate_limit"`
	RedisURL   string `yaml:"redis_url"`
	Debug      *bool  `yaml:"debug"`
}

func (c *Config) mergeFile(path string, lookup func(string) (string, bool)) error {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".yaml" && ext != ".yml" {
		return apierrors.Configuration("config file %q: only .yaml and .yml files are allowed", path)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return apierrors.Configuration("read config file: %v", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data), lookup)), &fc); err != nil {
		return apierrors.Configuration("parse config file: %v", err)
	}

	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.Timeout != "" {
		d, err := parseSeconds(fc.Timeout)
		if err != nil {
			return apierrors.Configuration("config file timeout: %v", err)
		}
		c.Timeout = d
	}
	if fc.MaxRetries != nil {
		c.MaxRetries = *fc.MaxRetries
	}
	if fc.RateLimit != nil {
		c.RateLimit = *fc.RateLimit
	}
	if fc.RedisURL != "" {
		c.RedisURL = fc.RedisURL
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	return nil
}

// parseSeconds accepts plain seconds ("30", "2.5") or a Go duration ("30s").
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR} and ${VAR:-default}.
func substituteEnvVars(content string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if v, ok := lookup(sub[1]); ok && v != "" {
			return v
		}
		return sub[2]
	})
}
