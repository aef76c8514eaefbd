package main

// Notes:
// - Tests use t.Setenv() which prevents t.Parallel().
// - applyEnvConfig is checked for override precedence over the file config.

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-pdfservice/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("PDFSERVICE_CONFIG", "/etc/pdfservice.yaml")
		t.Setenv("PDFSERVICE_LISTEN", ":9000")
		t.Setenv("PDFSERVICE_MAX_BODY", "1024")
		t.Setenv("PDFSERVICE_TIMEOUT", "45s")
		t.Setenv("PDFSERVICE_WORKERS", "3")
		t.Setenv("PDFSERVICE_ALLOW_ENCRYPTION", "false")
		t.Setenv("PDFSERVICE_ALLOW_NETWORK", "true")
		t.Setenv("PDFSERVICE_LOG_FORMAT", "json")

		env, err := loadEnvConfig()
		if err != nil {
			t.Fatalf("loadEnvConfig() error = %v", err)
		}
		if env.ConfigPath != "/etc/pdfservice.yaml" || env.Listen != ":9000" {
			t.Errorf("paths = %q %q", env.ConfigPath, env.Listen)
		}
		if env.MaxBody != 1024 || env.Workers != 3 || env.Timeout != "45s" {
			t.Errorf("numbers = %d %d %q", env.MaxBody, env.Workers, env.Timeout)
		}
		if env.AllowEncryption == nil || *env.AllowEncryption {
			t.Error("AllowEncryption should be set to false")
		}
		if env.AllowNetwork == nil || !*env.AllowNetwork {
			t.Error("AllowNetwork should be set to true")
		}
		if env.Metrics != nil {
			t.Error("Metrics should be unset")
		}
	})

	invalid := []struct {
		name  string
		value string
	}{
		{"PDFSERVICE_MAX_BODY", "lots"},
		{"PDFSERVICE_MAX_BODY", "-1"},
		{"PDFSERVICE_WORKERS", "-2"},
		{"PDFSERVICE_ALLOW_NETWORK", "maybe"},
	}
	for _, tt := range invalid {
		tt := tt
		t.Run("invalid "+tt.name+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.name, tt.value)
			if _, err := loadEnvConfig(); !errors.Is(err, ErrInvalidEnv) {
				t.Errorf("loadEnvConfig() = %v, want ErrInvalidEnv", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("PDFSERVICE_WORKER", "2")
	t.Setenv("PDFSERVICE_LISTEN", ":8080")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	if !strings.Contains(buf.String(), "PDFSERVICE_WORKER ") {
		t.Errorf("missing typo warning: %q", buf.String())
	}
	if strings.Contains(buf.String(), "PDFSERVICE_LISTEN") {
		t.Errorf("known variable reported: %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Override precedence
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	off := false
	cfg := config.Default()
	cfg.Server.Listen = ":7000"
	cfg.Render.Workers = 2

	env := &envConfig{
		Listen:          ":9000",
		Timeout:         "2m",
		AllowEncryption: &off,
		Metrics:         &off,
	}
	if err := applyEnvConfig(env, cfg); err != nil {
		t.Fatalf("applyEnvConfig() error = %v", err)
	}

	if cfg.Server.Listen != ":9000" {
		t.Errorf("Listen = %q, want env value", cfg.Server.Listen)
	}
	if cfg.Render.Timeout.Std() != 2*time.Minute {
		t.Errorf("Timeout = %v", cfg.Render.Timeout.Std())
	}
	if cfg.Render.Workers != 2 {
		t.Errorf("Workers = %d, unset env must keep file value", cfg.Render.Workers)
	}
	if cfg.Security.AllowEncryption || cfg.Metrics.Enabled {
		t.Error("boolean overrides not applied")
	}

	if err := applyEnvConfig(&envConfig{Timeout: "soon"}, cfg); !errors.Is(err, ErrInvalidEnv) {
		t.Errorf("bad timeout = %v, want ErrInvalidEnv", err)
	}
}
