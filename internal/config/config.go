package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/chromium-fetch/internal/logger"
)

// Config holds the transport and logging settings of chromium-fetch.
// Command line flags take precedence over the values loaded from YAML.
type Config struct {
	// BaseURL is the root of the Chromium snapshot bucket.
	BaseURL string `yaml:"base_url"`
	// Proxy is used for both http and https requests when set.
	Proxy string `yaml:"proxy,omitempty"`
	// RootCA is a PEM bundle that replaces the system roots for TLS verification.
	RootCA string `yaml:"root_ca,omitempty"`
	// Timeout bounds each HTTP request. Zero disables the limit.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFile receives a JSON copy of the log when set.
	LogFile string `yaml:"log_file,omitempty"`
}

const (
	// DefaultConfigFilename is read when no settings path is given.
	DefaultConfigFilename = "chromium-fetch.yaml"

	// DefaultBaseURL is the public Chromium snapshot bucket.
	DefaultBaseURL = "https://storage.googleapis.com/chromium-browser-snapshots"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidBaseURL is returned when the bucket URL lacks a scheme or host.
	errInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")
	// errInvalidProxy is returned when the proxy URL lacks a scheme or host.
	errInvalidProxy = errors.New("proxy must be an absolute URL")
	// errRootCAIsDirectory is returned when the root CA path points at a directory.
	errRootCAIsDirectory = errors.New("root CA must be a file")
	// errNegativeTimeout is returned for timeouts below zero.
	errNegativeTimeout = errors.New("timeout must not be negative")
	// errUnknownLogLevel is returned for log levels the logger cannot parse.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns settings pointing at the public bucket without proxy or custom CA.
func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
	}
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load for an explicit path. With an empty path
// it reads DefaultConfigFilename and falls back to Default when that file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	// Only a missing file falls back, errors inside an existing one are reported.
	if _, err := os.Stat(DefaultConfigFilename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return Load(DefaultConfigFilename)
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if !isAbsoluteURL(cfg.BaseURL, "http", "https") {
		return fmt.Errorf("%q: %w", cfg.BaseURL, errInvalidBaseURL)
	}

	if cfg.Proxy != "" && !isAbsoluteURL(cfg.Proxy) {
		return fmt.Errorf("%q: %w", cfg.Proxy, errInvalidProxy)
	}

	if cfg.RootCA != "" {
		info, err := os.Stat(cfg.RootCA)
		if err != nil {
			return fmt.Errorf("root CA: %w", err)
		}

		if info.IsDir() {
			return fmt.Errorf("%s: %w", cfg.RootCA, errRootCAIsDirectory)
		}
	}

	if cfg.Timeout < 0 {
		return errNegativeTimeout
	}

	if cfg.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
		}
	}

	return nil
}

// isAbsoluteURL reports whether raw has a host and, if schemes are given, one of them.
func isAbsoluteURL(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	if len(schemes) == 0 {
		return true
	}

	for _, scheme := range schemes {
		if u.Scheme == scheme {
			return true
		}
	}

	return false
}
