package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-pdfservice/internal/config"
)

const envPrefix = "PDFSERVICE_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
// Empty strings and nil pointers mean "not set".
type envConfig struct {
	ConfigPath      string // PDFSERVICE_CONFIG: config file path
	Listen          string // PDFSERVICE_LISTEN: listen address
	MaxBody         int64  // PDFSERVICE_MAX_BODY: request body limit in bytes
	Timeout         string // PDFSERVICE_TIMEOUT: render timeout
	StyleDir        string // PDFSERVICE_STYLE_DIR: style override directory
	BuiltinStyle    string // PDFSERVICE_BUILTIN_STYLE: embedded style name
	Workers         int    // PDFSERVICE_WORKERS: browser instances
	AllowEncryption *bool  // PDFSERVICE_ALLOW_ENCRYPTION
	AllowNetwork    *bool  // PDFSERVICE_ALLOW_NETWORK
	LogLevel        string // PDFSERVICE_LOG_LEVEL
	LogFormat       string // PDFSERVICE_LOG_FORMAT
	Metrics         *bool  // PDFSERVICE_METRICS: enable /metrics
}

// knownEnvVars lists valid PDFSERVICE_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"PDFSERVICE_CONFIG":           true,
	"PDFSERVICE_LISTEN":           true,
	"PDFSERVICE_MAX_BODY":         true,
	"PDFSERVICE_TIMEOUT":          true,
	"PDFSERVICE_STYLE_DIR":        true,
	"PDFSERVICE_BUILTIN_STYLE":    true,
	"PDFSERVICE_WORKERS":          true,
	"PDFSERVICE_ALLOW_ENCRYPTION": true,
	"PDFSERVICE_ALLOW_NETWORK":    true,
	"PDFSERVICE_LOG_LEVEL":        true,
	"PDFSERVICE_LOG_FORMAT":       true,
	"PDFSERVICE_METRICS":          true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and booleans are reported as ErrInvalidEnv.
func loadEnvConfig() (*envConfig, error) {
	cfg := &envConfig{
		ConfigPath:   os.Getenv("PDFSERVICE_CONFIG"),
		Listen:       os.Getenv("PDFSERVICE_LISTEN"),
		Timeout:      os.Getenv("PDFSERVICE_TIMEOUT"),
		StyleDir:     os.Getenv("PDFSERVICE_STYLE_DIR"),
		BuiltinStyle: os.Getenv("PDFSERVICE_BUILTIN_STYLE"),
		LogLevel:     os.Getenv("PDFSERVICE_LOG_LEVEL"),
		LogFormat:    os.Getenv("PDFSERVICE_LOG_FORMAT"),
	}

	if v := os.Getenv("PDFSERVICE_MAX_BODY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: PDFSERVICE_MAX_BODY=%q", ErrInvalidEnv, v)
		}
		cfg.MaxBody = n
	}
	if v := os.Getenv("PDFSERVICE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: PDFSERVICE_WORKERS=%q", ErrInvalidEnv, v)
		}
		cfg.Workers = n
	}

	var err error
	if cfg.AllowEncryption, err = envBool("PDFSERVICE_ALLOW_ENCRYPTION"); err != nil {
		return nil, err
	}
	if cfg.AllowNetwork, err = envBool("PDFSERVICE_ALLOW_NETWORK"); err != nil {
		return nil, err
	}
	if cfg.Metrics, err = envBool("PDFSERVICE_METRICS"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envBool(name string) (*bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, name, v)
	}
	return &b, nil
}

// warnUnknownEnvVars logs warnings for unrecognized PDFSERVICE_* variables.
// Helps catch typos like PDFSERVICE_WORKER instead of PDFSERVICE_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values over the file config.
// Precedence: flags > env vars > config file > defaults
// (flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) error {
	if env.Listen != "" {
		cfg.Server.Listen = env.Listen
	}
	if env.MaxBody > 0 {
		cfg.Server.MaxBodyBytes = env.MaxBody
	}
	if env.Timeout != "" {
		if err := cfg.Render.Timeout.UnmarshalText([]byte(env.Timeout)); err != nil {
			return fmt.Errorf("%w: PDFSERVICE_TIMEOUT=%q", ErrInvalidEnv, env.Timeout)
		}
	}
	if env.StyleDir != "" {
		cfg.Render.StyleDir = env.StyleDir
	}
	if env.BuiltinStyle != "" {
		cfg.Render.BuiltinStyle = env.BuiltinStyle
	}
	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
	if env.AllowEncryption != nil {
		cfg.Security.AllowEncryption = *env.AllowEncryption
	}
	if env.AllowNetwork != nil {
		cfg.Security.AllowNetwork = *env.AllowNetwork
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.Metrics != nil {
		cfg.Metrics.Enabled = *env.Metrics
	}
	return nil
}
