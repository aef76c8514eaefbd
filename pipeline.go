package pdfservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alnah/go-pdfservice/internal/fetch"
	"github.com/alnah/go-pdfservice/internal/markup"
)

// Default limits for decoding inbound requests.
const (
	DefaultMaxBodyBytes int64 = 32 << 20
)

// Recorder receives pipeline observations. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	StageFailed(stage, class string, status int)
	ResourceRefused(reason string)
	RenderDuration(d time.Duration)
	DocumentSizes(input, output int)
}

type noopRecorder struct{}

func (noopRecorder) StageFailed(string, string, int) {}
func (noopRecorder) ResourceRefused(string)          {}
func (noopRecorder) RenderDuration(time.Duration)    {}
func (noopRecorder) DocumentSizes(int, int)          {}

// markdownConverter abstracts Markdown to HTML conversion to allow testing.
type markdownConverter interface {
	ToHTML(ctx context.Context, content []byte) ([]byte, error)
}

// Compile-time interface check
var _ markdownConverter = (*markup.MarkdownConverter)(nil)

// Pipeline runs documents through decode, render, serialize, rotate and encrypt.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	engine          Engine
	codec           Codec
	markdown        markdownConverter
	network         fetch.NetworkFetcher
	styles          []string
	logger          *slog.Logger
	metrics         Recorder
	allowEncryption bool
	allowNetwork    bool
	maxBodyBytes    int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStyles sets the style overrides injected into every document.
// The slice is read concurrently and must not be modified afterwards.
func WithStyles(styles []string) Option {
	return func(p *Pipeline) {
		p.styles = styles
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.metrics = r
		}
	}
}

// WithNetworkFetcher sets the fetcher used when a request allows network access.
func WithNetworkFetcher(f fetch.NetworkFetcher) Option {
	return func(p *Pipeline) {
		p.network = f
	}
}

// WithAllowEncryption enables password protection of generated documents.
func WithAllowEncryption(allow bool) Option {
	return func(p *Pipeline) {
		p.allowEncryption = allow
	}
}

// WithAllowNetwork makes network access the default for decoded requests.
func WithAllowNetwork(allow bool) Option {
	return func(p *Pipeline) {
		p.allowNetwork = allow
	}
}

// WithMaxBodyBytes limits the size of a decoded request body.
func WithMaxBodyBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBodyBytes = n
		}
	}
}

// withMarkdownConverter replaces the Markdown converter (for testing).
func withMarkdownConverter(c markdownConverter) Option {
	return func(p *Pipeline) {
		p.markdown = c
	}
}

// NewPipeline creates a Pipeline over engine and codec.
func NewPipeline(engine Engine, codec Codec, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:          engine,
		codec:           codec,
		markdown:        markup.NewMarkdownConverter(),
		network:         fetch.NewHTTPFetcher(),
		logger:          slog.Default(),
		metrics:         noopRecorder{},
		allowEncryption: true,
		maxBodyBytes:    DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run decodes r and processes the resulting request.
func (p *Pipeline) Run(ctx context.Context, r *http.Request) (*Result, error) {
	req, stageErr := p.decode(r)
	if stageErr != nil {
		return nil, p.fail(ctx, stageErr)
	}
	return p.Process(ctx, req)
}

// Process renders req and applies the optional rotate and encrypt stages.
// Every failure is returned as a *StageError; partial output is discarded.
func (p *Pipeline) Process(ctx context.Context, req *Request) (*Result, error) {
	if stageErr := p.validate(req); stageErr != nil {
		return nil, p.fail(ctx, stageErr)
	}

	markupHTML, stageErr := p.prepareMarkup(ctx, req)
	if stageErr != nil {
		return nil, p.fail(ctx, stageErr)
	}

	start := time.Now()
	doc, stageErr := p.render(ctx, req, markupHTML)
	if stageErr != nil {
		return nil, p.fail(ctx, stageErr)
	}
	defer doc.Close()
	p.metrics.RenderDuration(time.Since(start))

	pdf, err := p.codec.Serialize(ctx, doc)
	if err != nil {
		return nil, p.fail(ctx, serializeFailure(err))
	}

	if req.Rotation != 0 {
		if pdf, err = p.codec.Rotate(pdf, req.Rotation); err != nil {
			return nil, p.fail(ctx, newStageError(StageRotate, ClassRotate,
				statusFor(err, http.StatusInternalServerError), err))
		}
	}

	if req.Password != "" {
		if pdf, err = p.codec.Encrypt(pdf, req.Password); err != nil {
			return nil, p.fail(ctx, newStageError(StageEncrypt, ClassEncrypt,
				statusFor(err, http.StatusInternalServerError), err))
		}
	}

	result := &Result{
		PDF:        pdf,
		Filename:   FilenameGenerated,
		InputSize:  len(req.Markup),
		OutputSize: len(pdf),
	}
	p.succeed(ctx, result)
	return result, nil
}

// EncryptDocument protects an already serialized PDF with password.
func (p *Pipeline) EncryptDocument(ctx context.Context, pdf []byte, password string) (*Result, error) {
	if !p.allowEncryption {
		return nil, p.fail(ctx, newStageError(StageEncrypt, ClassInvalidParameter,
			http.StatusBadRequest, ErrEncryptionDisabled))
	}
	if password == "" {
		return nil, p.fail(ctx, newStageError(StageEncrypt, ClassInvalidParameter,
			http.StatusBadRequest, ErrEmptyPassword))
	}
	out, err := p.codec.Encrypt(pdf, password)
	if err != nil {
		return nil, p.fail(ctx, newStageError(StageEncrypt, ClassEncrypt,
			statusFor(err, http.StatusInternalServerError), err))
	}
	result := &Result{PDF: out, Filename: FilenameEncrypted, InputSize: len(pdf), OutputSize: len(out)}
	p.succeed(ctx, result)
	return result, nil
}

// RotateDocument turns every page of an already serialized PDF.
func (p *Pipeline) RotateDocument(ctx context.Context, pdf []byte, angle int) (*Result, error) {
	if !validRotation(angle) {
		return nil, p.fail(ctx, newStageError(StageRotate, ClassInvalidParameter,
			http.StatusBadRequest, fmt.Errorf("%w: got %d", ErrInvalidRotation, angle)))
	}
	out, err := p.codec.Rotate(pdf, angle)
	if err != nil {
		return nil, p.fail(ctx, newStageError(StageRotate, ClassRotate,
			statusFor(err, http.StatusInternalServerError), err))
	}
	result := &Result{PDF: out, Filename: FilenameRotated, InputSize: len(pdf), OutputSize: len(out)}
	p.succeed(ctx, result)
	return result, nil
}

// validate rejects bad parameters before any engine or codec work happens.
func (p *Pipeline) validate(req *Request) *StageError {
	if len(req.Markup) == 0 {
		return newStageError(StageDecode, ClassDecode, http.StatusBadRequest, ErrEmptyDocument)
	}
	if err := req.Validate(); err != nil {
		return newStageError(StageRotate, ClassInvalidParameter, http.StatusBadRequest, err)
	}
	if req.Password != "" && !p.allowEncryption {
		return newStageError(StageEncrypt, ClassInvalidParameter, http.StatusBadRequest, ErrEncryptionDisabled)
	}
	return nil
}

// prepareMarkup returns the HTML the engine should render.
func (p *Pipeline) prepareMarkup(ctx context.Context, req *Request) ([]byte, *StageError) {
	if req.Format != FormatMarkdown {
		return req.Markup, nil
	}
	out, err := p.markdown.ToHTML(ctx, req.Markup)
	if err != nil {
		return nil, newStageError(StageDecode, ClassDecode, statusFor(err, http.StatusBadRequest), err)
	}
	return out, nil
}

// render drives the engine through a fresh fetch guard. The guard is closed
// on every exit path, including engine panics, before the stage returns.
func (p *Pipeline) render(ctx context.Context, req *Request, html []byte) (doc Rendered, stageErr *StageError) {
	logger := p.loggerFor(ctx)
	guard := fetch.NewGuard(
		fetch.NewAttachmentTable(req.Attachments...),
		fetch.Policy{AllowNetwork: req.AllowNetwork},
		fetch.WithNetworkFetcher(p.network),
		fetch.WithLogger(logger),
		fetch.WithObserver(func(r *fetch.Refusal) {
			p.metrics.ResourceRefused(string(r.Reason))
		}),
	)

	var engineErr error
	defer func() {
		if v := recover(); v != nil {
			engineErr = fmt.Errorf("%w: %v", ErrEnginePanic, v)
		}
		closeErr := guard.Close()
		if engineErr == nil && closeErr == nil {
			return
		}
		if doc != nil {
			if err := doc.Close(); err != nil {
				logger.Debug("closing rendered document", "error", err)
			}
			doc = nil
		}
		stageErr = renderFailure(engineErr, closeErr)
	}()

	doc, engineErr = p.engine.Render(ctx, RenderInput{
		Markup:  html,
		BaseURL: req.BaseURL,
		Fetch:   guard.Fetch,
		Styles:  p.styles,
	})
	return doc, nil
}

func (p *Pipeline) fail(ctx context.Context, se *StageError) *StageError {
	p.metrics.StageFailed(string(se.Stage), string(se.Class), se.Status)
	level := slog.LevelWarn
	if !se.ClientError() {
		level = slog.LevelError
	}
	p.loggerFor(ctx).Log(ctx, level, "pipeline failed",
		"stage", se.Stage,
		"class", se.Class,
		"status", se.Status,
		"detail", se.Detail,
	)
	return se
}

func (p *Pipeline) succeed(ctx context.Context, result *Result) {
	p.metrics.DocumentSizes(result.InputSize, result.OutputSize)
	p.loggerFor(ctx).Info("document ready",
		"filename", result.Filename,
		"html_size", result.InputSize,
		"pdf_size", result.OutputSize,
	)
}

type loggerKey struct{}

// ContextWithLogger attaches a request-scoped logger used by the pipeline.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func (p *Pipeline) loggerFor(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return p.logger
}
