package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Resource is resolved content together with its media type.
type Resource struct {
	Content   []byte
	MediaType string
}

// Policy is the request-scoped network policy.
type Policy struct {
	AllowNetwork bool
}

// NetworkFetcher loads a remote resource. Implementations report HTTP failures
// as *FetchError so the guard can tell "not found" apart from other failures.
type NetworkFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Resource, error)
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithNetworkFetcher sets the fetcher used when the policy allows network access.
func WithNetworkFetcher(f NetworkFetcher) GuardOption {
	return func(g *Guard) { g.network = f }
}

// WithLogger sets the logger receiving one debug record per resolved or refused reference.
func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver registers a callback invoked for every recorded refusal.
func WithObserver(fn func(*Refusal)) GuardOption {
	return func(g *Guard) { g.observe = fn }
}

// Guard resolves references for a single render and records every refusal.
//
// A Guard is created open, used by one render, and closed exactly once. It is
// safe for concurrent use. Calls are serialized, so Close waits for a Fetch
// already in progress and every later Fetch is refused.
type Guard struct {
	attachments AttachmentTable
	policy      Policy
	network     NetworkFetcher
	logger      *slog.Logger
	observe     func(*Refusal)

	mu       sync.Mutex // guards refusals and closed
	refusals []*Refusal
	closed   bool
}

// NewGuard returns an open Guard over the given attachments and policy.
func NewGuard(attachments AttachmentTable, policy Policy, opts ...GuardOption) *Guard {
	g := &Guard{
		attachments: attachments,
		policy:      policy,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch resolves reference or returns the refusal it recorded.
// After Close every call fails with ErrGuardClosed.
func (g *Guard) Fetch(ctx context.Context, reference string) (*Resource, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonGuardAlreadyClosed,
			Reference: reference,
			Detail:    fmt.Sprintf("fetch of %q after the render ended", reference),
		})
	}

	channel := Classify(reference)
	var (
		res *Resource
		err error
	)
	switch channel {
	case ChannelInline:
		res, err = g.fetchInline(reference)
	case ChannelLocal:
		res, err = g.fetchLocal(reference)
	default:
		res, err = g.fetchNetwork(ctx, reference)
	}
	if err != nil {
		return nil, err
	}

	g.logger.Debug("resource resolved",
		"channel", channel.String(),
		"reference", truncate(reference),
		"media_type", res.MediaType,
		"bytes", len(res.Content))
	return res, nil
}

func (g *Guard) fetchInline(reference string) (*Resource, error) {
	res, err := decodeInline(reference)
	if err != nil {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonMalformedInline,
			Reference: reference,
			Detail:    fmt.Sprintf("invalid data URI: %v", err),
			Err:       err,
		})
	}
	return res, nil
}

func (g *Guard) fetchLocal(reference string) (*Resource, error) {
	name := AttachmentKey(reference)

	if g.attachments.Len() == 0 {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonAttachmentsUnavailable,
			Reference: reference,
			Detail:    fmt.Sprintf("referenced local file (%s) but the request carries no attachments", name),
		})
	}

	a, ok := g.attachments.Lookup(name)
	if !ok {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonAttachmentMissing,
			Reference: reference,
			Detail:    fmt.Sprintf("missing file (%s) required by the document", name),
		})
	}
	return &Resource{Content: a.Content, MediaType: a.MediaType}, nil
}

func (g *Guard) fetchNetwork(ctx context.Context, reference string) (*Resource, error) {
	if !g.policy.AllowNetwork {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonNetworkDisallowed,
			Reference: reference,
			Detail:    fmt.Sprintf("attempted to fetch forbidden url (%q)", reference),
		})
	}
	if g.network == nil {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonNetworkFetchFailed,
			Reference: reference,
			Detail:    "no network fetcher configured for " + reference,
		})
	}

	res, err := g.network.Fetch(ctx, reference)
	if err != nil {
		return nil, g.refuse(&Refusal{
			Reason:    ReasonNetworkFetchFailed,
			Reference: reference,
			Detail:    err.Error(),
			Err:       err,
		})
	}
	return res, nil
}

// refuse appends r to the refusal list and returns it for the caller to raise.
// The caller holds g.mu.
func (g *Guard) refuse(r *Refusal) *Refusal {
	g.refusals = append(g.refusals, r)
	g.logger.Debug("resource refused",
		"reason", string(r.Reason),
		"reference", truncate(r.Reference),
		"detail", r.Detail)
	if g.observe != nil {
		g.observe(r)
	}
	return r
}

// Close ends the render. It returns nil when nothing was refused, the single
// refusal unchanged when there was one, and an *AggregateError otherwise.
// Only the first call reports; later calls return nil.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	switch len(g.refusals) {
	case 0:
		return nil
	case 1:
		return g.refusals[0]
	default:
		return &AggregateError{Refusals: g.copyRefusals()}
	}
}

// Closed reports whether Close has been called.
func (g *Guard) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Refusals returns a copy of the recorded refusals in encounter order.
func (g *Guard) Refusals() []*Refusal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.copyRefusals()
}

func (g *Guard) copyRefusals() []*Refusal {
	out := make([]*Refusal, len(g.refusals))
	copy(out, g.refusals)
	return out
}

// truncate keeps long data: URIs out of log lines.
func truncate(s string) string {
	const maxLen = 120
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
