package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/printmail/postgrid-go/internal/apierrors"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{EnvAPIKey: "test_sk_abc"}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.RateLimit != DefaultRateLimit {
		t.Errorf("RateLimit = %d, want %d", cfg.RateLimit, DefaultRateLimit)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{
		EnvAPIKey:     "test_sk_abc",
		EnvBaseURL:    "https://sandbox.example.com/v1/",
		EnvTimeout:    "12",
		EnvMaxRetries: "0",
		EnvRateLimit:  "5",
		EnvRedisURL:   "redis://localhost:6379/0",
		EnvDebug:      "true",
	}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.BaseURL != "https://sandbox.example.com/v1/" {
		t.Errorf("BaseURL = %s", cfg.BaseURL)
	}
	if cfg.Timeout != 12*time.Second {
		t.Errorf("Timeout = %v, want 12s", cfg.Timeout)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %d, want 5", cfg.RateLimit)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %s", cfg.RedisURL)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestFromEnv_TimeoutAsDuration(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(map[string]string{EnvAPIKey: "k", EnvTimeout: "1m30s"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 1m30s", cfg.Timeout)
	}
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing key", map[string]string{}},
		{"blank key", map[string]string{EnvAPIKey: "   "}},
		{"relative base url", map[string]string{EnvAPIKey: "k", EnvBaseURL: "/print-mail/v1"}},
		{"non http base url", map[string]string{EnvAPIKey: "k", EnvBaseURL: "ftp://api.postgrid.com"}},
		{"bad timeout", map[string]string{EnvAPIKey: "k", EnvTimeout: "soon"}},
		{"zero timeout", map[string]string{EnvAPIKey: "k", EnvTimeout: "0"}},
		{"negative retries", map[string]string{EnvAPIKey: "k", EnvMaxRetries: "-1"}},
		{"bad retries", map[string]string{EnvAPIKey: "k", EnvMaxRetries: "three"}},
		{"zero rate limit", map[string]string{EnvAPIKey: "k", EnvRateLimit: "0"}},
		{"bad debug", map[string]string{EnvAPIKey: "k", EnvDebug: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(lookupFrom(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, apierrors.ErrConfiguration) {
				t.Errorf("error %v does not match ErrConfiguration", err)
			}
			if apierrors.KindOf(err) != apierrors.KindConfiguration {
				t.Errorf("KindOf() = %q, want configuration", apierrors.KindOf(err))
			}
		})
	}
}

func TestFromEnv_MissingKeyMatchesSentinel(t *testing.T) {
	_, err := FromEnv(lookupFrom(nil))
	if !errors.Is(err, apierrors.ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}

func TestFromEnv_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postgrid.yaml")
	content := `
api_key: ${FILE_TEST_KEY}
base_url: ${FILE_TEST_URL:-https://file.example.com/v1/}
timeout: 45s
max_retries: 1
rate_limit: 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromEnv(lookupFrom(map[string]string{
		EnvConfigFile:   path,
		"FILE_TEST_KEY": "test_sk_file",
		EnvRateLimit:    "20",
	}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.APIKey != "test_sk_file" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.BaseURL != "https://file.example.com/v1/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.RateLimit != 20 {
		t.Errorf("RateLimit = %d, environment should win over file", cfg.RateLimit)
	}
}

func TestFromEnv_RejectsNonYAMLFile(t *testing.T) {
	_, err := FromEnv(lookupFrom(map[string]string{EnvAPIKey: "k", EnvConfigFile: "/etc/passwd"}))
	if !errors.Is(err, apierrors.ErrConfiguration) {
		t.Errorf("error = %v, want configuration error", err)
	}
}

func TestLoad_Cached(t *testing.T) {
	t.Setenv(EnvAPIKey, "test_sk_cached")

	first, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	t.Setenv(EnvAPIKey, "test_sk_changed")
	second, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if first != second {
		t.Error("Load() returned different values")
	}
	if second.APIKey != "test_sk_cached" {
		t.Errorf("APIKey = %q, environment was re-read", second.APIKey)
	}
}
