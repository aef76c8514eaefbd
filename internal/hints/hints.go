// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	info, err := os.Stat("/.dockerenv")
	return err == nil && !info.IsDir()
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != ""

	// The engine only disables the Chrome sandbox under CI=true or ROD_BROWSER_BIN.
	if IsInContainer() && os.Getenv("CI") != "true" && os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set CI=true to run Chrome without its sandbox in containers")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		if inCI || IsInContainer() {
			hints = append(hints, "install chromium and set ROD_BROWSER_BIN")
		} else {
			hints = append(hints, "set ROD_BROWSER_BIN to use a preinstalled Chrome")
		}
	}

	return formatHints(hints)
}

// ForConfigNotFound returns a hint for a missing config file.
func ForConfigNotFound() string {
	return format("use --config /path/to/file.yaml or unset PDFSERVICE_CONFIG")
}

// ForStyleNotFound lists the built-in styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForListen returns a hint for listener errors.
func ForListen(addr string) string {
	return format("check that " + addr + " is free, or pick another with --listen")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
