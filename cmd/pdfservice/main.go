package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	pdfservice "github.com/alnah/go-pdfservice"
	"github.com/alnah/go-pdfservice/internal/assets"
	"github.com/alnah/go-pdfservice/internal/config"
	"github.com/alnah/go-pdfservice/internal/fetch"
	"github.com/alnah/go-pdfservice/internal/hints"
	"github.com/alnah/go-pdfservice/internal/metrics"
	"github.com/alnah/go-pdfservice/internal/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error()+hintFor(err))
	}
	os.Exit(exitCodeFor(err))
}

// run wires the service and serves until ctx is done.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, flags, err := resolveConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.version {
		fmt.Fprintln(stdout, Version)
		return nil
	}
	if flags.printConfig {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	logger, err := newLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	styles, err := assets.LoadStyles(cfg.Render.BuiltinStyle, cfg.Render.StyleDir)
	if err != nil {
		return fmt.Errorf("loading styles: %w", err)
	}

	poolSize := pdfservice.ResolvePoolSize(cfg.Render.Workers)
	pool := pdfservice.NewEnginePool(poolSize, func() pdfservice.PoolEngine {
		return pdfservice.NewRodEngine(
			pdfservice.WithRenderTimeout(cfg.Render.Timeout.Std()),
			pdfservice.WithEngineLogger(logger),
		)
	})
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing engine pool", "error", err)
		}
	}()

	pipelineOpts := []pdfservice.Option{
		pdfservice.WithStyles(styles),
		pdfservice.WithLogger(logger),
		pdfservice.WithAllowEncryption(cfg.Security.AllowEncryption),
		pdfservice.WithAllowNetwork(cfg.Security.AllowNetwork),
		pdfservice.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		pdfservice.WithNetworkFetcher(fetch.NewHTTPFetcher(
			fetch.WithFetchTimeout(cfg.Fetch.Timeout.Std()),
			fetch.WithMaxFetchBytes(cfg.Fetch.MaxBytes),
		)),
	}
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		pipelineOpts = append(pipelineOpts, pdfservice.WithMetrics(collector))
	}
	pipeline := pdfservice.NewPipeline(pdfservice.NewPooledEngine(pool), pdfservice.NewPDFCodec(), pipelineOpts...)

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(pipeline, server.Options{
		Listen:          cfg.Server.Listen,
		Logger:          logger,
		Metrics:         collector,
		MetricsPath:     cfg.Metrics.Path,
		RequestTimeout:  cfg.Server.RequestTimeout.Std(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	})

	logger.Info("starting pdfservice",
		"version", Version,
		"workers", poolSize,
		"styles", len(styles),
		"allow_encryption", cfg.Security.AllowEncryption,
		"allow_network", cfg.Security.AllowNetwork,
	)

	if err := srv.ListenAndServe(ctx); err != nil {
		if errors.Is(err, server.ErrListen) {
			return fmt.Errorf("%w: %w%s", ErrServe, err, hints.ForListen(cfg.Server.Listen))
		}
		return fmt.Errorf("%w: %w", ErrServe, err)
	}
	return nil
}

// resolveConfig layers defaults, the config file, PDFSERVICE_* variables and
// explicit flags, then validates the result.
func resolveConfig(args []string, stderr io.Writer) (*config.Config, *serveFlags, error) {
	flags, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if flags.version {
		return config.Default(), flags, nil
	}

	warnUnknownEnvVars(stderr)
	env, err := loadEnvConfig()
	if err != nil {
		return nil, nil, err
	}

	path := flags.config
	if path == "" {
		path = env.ConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := applyEnvConfig(env, cfg); err != nil {
		return nil, nil, err
	}
	if err := mergeFlags(fs, flags, cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// hintFor returns an actionable hint for startup errors, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound()
	case errors.Is(err, assets.ErrStyleNotFound):
		return hints.ForStyleNotFound(assets.NewEmbeddedLoader().Names())
	}
	return ""
}
