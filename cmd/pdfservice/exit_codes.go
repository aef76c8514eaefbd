package main

import (
	"errors"
	"fmt"
	"os"

	pdfservice "github.com/alnah/go-pdfservice"
	"github.com/alnah/go-pdfservice/internal/assets"
	"github.com/alnah/go-pdfservice/internal/config"
)

// Sentinel errors for the binary.
var (
	ErrInvalidEnv = errors.New("invalid environment variable")
	ErrUsage      = errors.New("invalid usage")
	ErrServe      = errors.New("server failed")
)

// Exit codes for pdfservice.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Clean shutdown
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, environment, or config
	ExitIO      = 3 // Style directory or config file unreadable
	ExitBrowser = 4 // Browser/Chrome errors
	ExitServe   = 5 // Listener could not start or shut down cleanly
)

// flagError reports a flag whose value could not be parsed.
type flagError struct {
	name  string
	value string
	err   error
}

func (e *flagError) Error() string {
	return fmt.Sprintf("invalid value %q for --%s: %v", e.value, e.name, e.err)
}

func (e *flagError) Unwrap() []error { return []error{ErrUsage, e.err} }

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, pdfservice.ErrBrowserConnect) ||
		errors.Is(err, pdfservice.ErrPageCreate) {
		return ExitBrowser
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidEnv) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, assets.ErrAssetRead) ||
		errors.Is(err, assets.ErrPathTraversal) {
		return ExitIO
	}

	if errors.Is(err, ErrServe) {
		return ExitServe
	}

	return ExitGeneral
}
