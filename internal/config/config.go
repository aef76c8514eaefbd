// Package config holds the service configuration: defaults, YAML file
// loading and validation. Environment and flag overrides are applied by the
// binary on top of the loaded value.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alnah/go-pdfservice/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Defaults.
const (
	DefaultListen          = ":8080"
	DefaultMaxBodyBytes    = 32 << 20
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultRenderTimeout   = 30 * time.Second
	DefaultFetchTimeout    = 15 * time.Second
	DefaultFetchMaxBytes   = 20 << 20
	DefaultMetricsPath     = "/metrics"
)

// Duration is a time.Duration written as a Go duration string ("30s") in YAML.
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Render   RenderConfig   `yaml:"render"`
	Security SecurityConfig `yaml:"security"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Listen          string   `yaml:"listen"`
	MaxBodyBytes    int64    `yaml:"maxBodyBytes"`
	RequestTimeout  Duration `yaml:"requestTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// RenderConfig defines the rendering engine and style overrides.
type RenderConfig struct {
	Timeout      Duration `yaml:"timeout"`
	Workers      int      `yaml:"workers"`      // 0 = auto (GOMAXPROCS/2, max 8)
	StyleDir     string   `yaml:"styleDir"`     // every *.css file is injected, empty = none
	BuiltinStyle string   `yaml:"builtinStyle"` // embedded style name, empty = none
}

// SecurityConfig defines what documents may do.
type SecurityConfig struct {
	AllowEncryption bool `yaml:"allowEncryption"`
	AllowNetwork    bool `yaml:"allowNetwork"` // network access for every request
}

// FetchConfig defines limits for network resource fetches.
type FetchConfig struct {
	Timeout  Duration `yaml:"timeout"`
	MaxBytes int      `yaml:"maxBytes"`
}

// LogConfig defines structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          DefaultListen,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			RequestTimeout:  Duration(DefaultRequestTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Render: RenderConfig{
			Timeout: Duration(DefaultRenderTimeout),
		},
		Security: SecurityConfig{
			AllowEncryption: true,
		},
		Fetch: FetchConfig{
			Timeout:  Duration(DefaultFetchTimeout),
			MaxBytes: DefaultFetchMaxBytes,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Server.Listen != "", "server.listen: must not be empty")
	check(c.Server.MaxBodyBytes > 0, "server.maxBodyBytes: must be positive, got %d", c.Server.MaxBodyBytes)
	check(c.Server.RequestTimeout > 0, "server.requestTimeout: must be positive")
	check(c.Server.ShutdownTimeout > 0, "server.shutdownTimeout: must be positive")
	check(c.Render.Timeout > 0, "render.timeout: must be positive")
	check(c.Render.Workers >= 0, "render.workers: must not be negative, got %d", c.Render.Workers)
	check(!strings.ContainsAny(c.Render.BuiltinStyle, "/\\."), "render.builtinStyle: invalid name %q", c.Render.BuiltinStyle)
	check(c.Fetch.Timeout > 0, "fetch.timeout: must be positive")
	check(c.Fetch.MaxBytes > 0, "fetch.maxBytes: must be positive, got %d", c.Fetch.MaxBytes)

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		check(false, "log.level: invalid value %q (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		check(false, "log.format: invalid value %q (must be text or json)", c.Log.Format)
	}

	if c.Metrics.Enabled {
		check(strings.HasPrefix(c.Metrics.Path, "/"), "metrics.path: must start with /, got %q", c.Metrics.Path)
	}

	return errors.Join(errs...)
}

// YAML renders the configuration, for printing the effective settings.
func (c *Config) YAML() ([]byte, error) {
	return yamlutil.Marshal(c)
}
