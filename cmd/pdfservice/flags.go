package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-pdfservice/internal/config"
)

// serveFlags holds every command-line flag.
type serveFlags struct {
	config      string
	printConfig bool
	version     bool

	listen  string
	maxBody int64
	timeout string

	styleDir     string
	builtinStyle string
	workers      int

	allowEncryption bool
	allowNetwork    bool

	logLevel  string
	logFormat string
}

// parseFlags parses args (program name first). The returned FlagSet reports
// which flags were set explicitly.
func parseFlags(args []string, stderr io.Writer) (*serveFlags, *flag.FlagSet, error) {
	f := &serveFlags{}
	fs := flag.NewFlagSet("pdfservice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.StringVarP(&f.config, "config", "c", "", "path to YAML config file")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")

	fs.StringVarP(&f.listen, "listen", "l", config.DefaultListen, "listen address")
	fs.Int64Var(&f.maxBody, "max-body", config.DefaultMaxBodyBytes, "maximum request body size in bytes")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "render timeout (e.g. 30s, 2m)")

	fs.StringVar(&f.styleDir, "style-dir", "", "directory of CSS files injected into every document")
	fs.StringVar(&f.builtinStyle, "builtin-style", "", "embedded style injected into every document (e.g. print)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser instances (0 = auto)")

	fs.BoolVar(&f.allowEncryption, "allow-encryption", true, "allow password protection of generated documents")
	fs.BoolVar(&f.allowNetwork, "allow-network", false, "allow network resources for every request")

	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "text", "log format: text, json")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// mergeFlags applies explicitly set flags over cfg.
func mergeFlags(fs *flag.FlagSet, f *serveFlags, cfg *config.Config) error {
	if fs.Changed("listen") {
		cfg.Server.Listen = f.listen
	}
	if fs.Changed("max-body") {
		cfg.Server.MaxBodyBytes = f.maxBody
	}
	if fs.Changed("timeout") {
		if err := cfg.Render.Timeout.UnmarshalText([]byte(f.timeout)); err != nil {
			return &flagError{name: "timeout", value: f.timeout, err: err}
		}
	}
	if fs.Changed("style-dir") {
		cfg.Render.StyleDir = f.styleDir
	}
	if fs.Changed("builtin-style") {
		cfg.Render.BuiltinStyle = f.builtinStyle
	}
	if fs.Changed("workers") {
		cfg.Render.Workers = f.workers
	}
	if fs.Changed("allow-encryption") {
		cfg.Security.AllowEncryption = f.allowEncryption
	}
	if fs.Changed("allow-network") {
		cfg.Security.AllowNetwork = f.allowNetwork
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	return nil
}
