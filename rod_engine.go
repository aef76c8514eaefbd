package pdfservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-pdfservice/internal/fetch"
	"github.com/alnah/go-pdfservice/internal/hints"
	"github.com/alnah/go-pdfservice/internal/markup"
	"github.com/alnah/go-pdfservice/internal/process"
)

// Documents without a base URL are served from this origin. The .invalid TLD
// never resolves, so only hijacked requests can reach it.
const (
	documentHost = "document.invalid"
	documentURL  = "http://" + documentHost + "/index.html"
)

// PDF page dimensions in inches (US Letter format).
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
	marginInches      = 0.5
)

// DefaultRenderTimeout bounds page load when the context carries no deadline.
const DefaultRenderTimeout = 30 * time.Second

// Compile-time interface checks
var (
	_ Engine   = (*RodEngine)(nil)
	_ Rendered = (*rodDocument)(nil)
)

// RodEngine renders documents in headless Chrome via go-rod.
// Rod automatically downloads Chromium on first run if not found.
type RodEngine struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
	logger   *slog.Logger
}

// RodOption configures a RodEngine.
type RodOption func(*RodEngine)

// WithRenderTimeout sets the page load timeout.
func WithRenderTimeout(d time.Duration) RodOption {
	return func(e *RodEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l *slog.Logger) RodOption {
	return func(e *RodEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewRodEngine creates an engine. The browser is launched on first render.
func NewRodEngine(opts ...RodOption) *RodEngine {
	e := &RodEngine{
		timeout: DefaultRenderTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ensureBrowser lazily connects to the browser.
func (e *RodEngine) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}
	e.browser = browser
	e.launcher = l
	e.logger.Debug("browser started", "pid", l.PID())
	return browser, nil
}

// Close releases browser resources. A browser that does not close over the
// protocol has its process tree killed.
func (e *RodEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser == nil {
		return nil
	}

	err := e.browser.Close()
	if err != nil {
		pid := e.launcher.PID()
		if killErr := process.KillTree(pid); killErr != nil {
			e.logger.Debug("killing browser process group", "pid", pid, "error", killErr)
			e.launcher.Kill()
		}
	}
	e.launcher.Cleanup()
	e.browser, e.launcher = nil, nil
	return err
}

// Render loads the markup in a new page and waits for it to finish loading.
// Every request the page makes, including the document itself, is answered
// through in.Fetch; refused references fail with BlockedByClient.
func (e *RodEngine) Render(ctx context.Context, in RenderInput) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docURL := documentURL
	if in.BaseURL != "" {
		docURL = in.BaseURL
	}
	target, err := url.Parse(docURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrPageLoad, err)
	}

	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	doc := &rodDocument{
		ctx:    ctx,
		page:   page,
		target: target,
		markup: []byte(markup.InjectStyles(string(in.Markup), in.Styles)),
		fetch:  in.Fetch,
		logger: e.logger,
	}

	doc.router = page.HijackRequests()
	if err := doc.router.Add("*", "", doc.handle); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	go doc.router.Run()

	if err := doc.load(ctx, e.timeout); err != nil {
		_ = doc.Close()
		return nil, err
	}
	return doc, nil
}

// rodDocument is a loaded page plus the router still attached to it.
type rodDocument struct {
	ctx    context.Context
	page   *rod.Page
	router *rod.HijackRouter
	target *url.URL
	markup []byte
	logger *slog.Logger

	mu        sync.Mutex // serializes fetch and guards lateFetch
	fetch     FetchFunc
	lateFetch error
	closeOnce sync.Once
}

// load emulates print media, then navigates and waits for the load event.
func (d *rodDocument) load(ctx context.Context, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}
	page := d.page.Context(ctx).Timeout(timeout)

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return fmt.Errorf("%w: emulating print media: %v", ErrPageLoad, err)
	}
	if err := page.Navigate(d.target.String()); err != nil {
		return d.loadError(ctx, err)
	}
	if err := page.WaitLoad(); err != nil {
		return d.loadError(ctx, err)
	}
	return nil
}

func (d *rodDocument) loadError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrPageLoad, context.DeadlineExceeded)
	}
	return fmt.Errorf("%w: %v", ErrPageLoad, err)
}

// handle answers one intercepted browser request.
func (d *rodDocument) handle(h *rod.Hijack) {
	u := h.Request.URL()
	if d.isDocument(u) {
		h.Response.SetHeader("Content-Type", "text/html; charset=utf-8")
		h.Response.SetBody(d.markup)
		return
	}

	reference := d.reference(u)

	d.mu.Lock()
	res, err := d.fetch(d.ctx, reference)
	if err != nil && errors.Is(err, fetch.ErrGuardClosed) && d.lateFetch == nil {
		d.lateFetch = err
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Debug("request blocked", "reference", reference, "error", err)
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}
	h.Response.SetHeader("Content-Type", res.MediaType)
	h.Response.SetBody(res.Content)
}

func (d *rodDocument) isDocument(u *url.URL) bool {
	return u.Scheme == d.target.Scheme &&
		u.Host == d.target.Host &&
		u.Path == d.target.Path &&
		u.RawQuery == d.target.RawQuery
}

// reference maps a request URL back to the reference the document made.
// Requests to the synthetic origin become host-less references.
func (d *rodDocument) reference(u *url.URL) string {
	if u.Host != documentHost {
		return u.String()
	}
	ref := u.EscapedPath()
	if u.RawQuery != "" {
		ref += "?" + u.RawQuery
	}
	return ref
}

// WritePDF prints the page. A resource requested after the fetch guard
// closed makes the document unusable.
func (d *rodDocument) WritePDF(ctx context.Context) ([]byte, error) {
	reader, err := d.page.Context(ctx).PDF(pdfOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}

	d.mu.Lock()
	late := d.lateFetch
	d.mu.Unlock()
	if late != nil {
		return nil, fmt.Errorf("%w: %w", ErrPDFGeneration, late)
	}
	return pdf, nil
}

// Close stops request interception and closes the page.
func (d *rodDocument) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = errors.Join(d.router.Stop(), d.page.Close())
	})
	return err
}

// pdfOptions returns print settings: US Letter, 0.5in margins, backgrounds on.
// A CSS @page rule in the document takes precedence.
func pdfOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(paperWidthInches),
		PaperHeight:       floatPtr(paperHeightInches),
		MarginTop:         floatPtr(marginInches),
		MarginBottom:      floatPtr(marginInches),
		MarginLeft:        floatPtr(marginInches),
		MarginRight:       floatPtr(marginInches),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
