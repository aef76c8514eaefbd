package main

// Notes:
// - run is exercised for the paths that return before the browser pool and
//   listener start (help, version, print-config, configuration errors).
// - Tests that touch PDFSERVICE_* variables cannot run in parallel.

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-pdfservice/internal/assets"
	"github.com/alnah/go-pdfservice/internal/config"
)

// ---------------------------------------------------------------------------
// TestResolveConfig - Layer precedence
// ---------------------------------------------------------------------------

func TestResolveConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfservice.yaml")
	yaml := "server:\n  listen: \":7000\"\nrender:\n  workers: 2\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PDFSERVICE_CONFIG", path)
	t.Setenv("PDFSERVICE_WORKERS", "5")
	t.Setenv("PDFSERVICE_LOG_LEVEL", "debug")

	var stderr bytes.Buffer
	cfg, _, err := resolveConfig([]string{"pdfservice", "--log-level", "error", "--allow-network"}, &stderr)
	if err != nil {
		t.Fatalf("resolveConfig() error = %v", err)
	}

	if cfg.Server.Listen != ":7000" {
		t.Errorf("Listen = %q, want file value", cfg.Server.Listen)
	}
	if cfg.Render.Workers != 5 {
		t.Errorf("Workers = %d, want env value", cfg.Render.Workers)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Level = %q, want flag value", cfg.Log.Level)
	}
	if !cfg.Security.AllowNetwork {
		t.Error("AllowNetwork flag not applied")
	}
	if !cfg.Security.AllowEncryption {
		t.Error("AllowEncryption default lost")
	}
}

func TestResolveConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown flag", []string{"pdfservice", "--nope"}, ErrUsage},
		{"bad timeout flag", []string{"pdfservice", "--timeout", "soon"}, ErrUsage},
		{"missing config", []string{"pdfservice", "--config", "/does/not/exist.yaml"}, config.ErrConfigNotFound},
		{"invalid value", []string{"pdfservice", "--log-format", "xml"}, config.ErrInvalidConfig},
		{"negative workers", []string{"pdfservice", "--workers", "-1"}, config.ErrInvalidConfig},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if _, _, err := resolveConfig(tt.args, &stderr); !errors.Is(err, tt.want) {
				t.Errorf("resolveConfig() = %v, want %v", err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRun - Early exits
// ---------------------------------------------------------------------------

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"pdfservice", "--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.TrimSpace(stdout.String()) != Version {
		t.Errorf("stdout = %q, want %q", stdout.String(), Version)
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"pdfservice", "--help"}, &stdout, &stderr); err != nil {
		t.Errorf("run(--help) = %v, want nil", err)
	}
	if !strings.Contains(stderr.String(), "--allow-network") {
		t.Errorf("usage missing flags: %q", stderr.String())
	}
}

func TestRun_PrintConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"pdfservice", "--print-config", "--listen", ":9999", "--timeout", "90s"}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	for _, want := range []string{":9999", "timeout: 1m30s"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("printed config missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestRun_UnknownBuiltinStyle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"pdfservice", "--builtin-style", "nope"}, &stdout, &stderr)
	if !errors.Is(err, assets.ErrStyleNotFound) {
		t.Errorf("run() = %v, want ErrStyleNotFound", err)
	}
	if exitCodeFor(err) != ExitUsage {
		t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitUsage)
	}
}

// ---------------------------------------------------------------------------
// TestNewLogger - Log handler selection
// ---------------------------------------------------------------------------

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record emitted at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("json output = %q", out)
	}
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("error level disabled")
	}

	if _, err := newLogger(&buf, config.LogConfig{Level: "loud", Format: "text"}); !errors.Is(err, ErrUsage) {
		t.Errorf("bad level = %v, want ErrUsage", err)
	}
	if _, err := newLogger(&buf, config.LogConfig{Level: "info", Format: "xml"}); !errors.Is(err, ErrUsage) {
		t.Errorf("bad format = %v, want ErrUsage", err)
	}
}

// ---------------------------------------------------------------------------
// TestHintFor - Startup error hints
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	if got := hintFor(config.ErrConfigNotFound); !strings.Contains(got, "--config") {
		t.Errorf("config hint = %q", got)
	}
	if got := hintFor(assets.ErrStyleNotFound); !strings.Contains(got, "print") {
		t.Errorf("style hint = %q, want built-in names", got)
	}
	if got := hintFor(errors.New("other")); got != "" {
		t.Errorf("hintFor(other) = %q, want empty", got)
	}
}
