package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, one per refusal reason. A *Refusal matches its reason's
// sentinel with errors.Is.
var (
	ErrAttachmentsUnavailable = errors.New("no attachments available")
	ErrAttachmentMissing      = errors.New("attachment missing")
	ErrNetworkDisallowed      = errors.New("network access disallowed")
	ErrNetworkFetchFailed     = errors.New("network fetch failed")
	ErrMalformedInline        = errors.New("malformed inline resource")

	// ErrGuardClosed reports a fetch attempted after the render ended.
	// It signals a broken lifecycle in the caller, not bad input.
	ErrGuardClosed = errors.New("fetch guard already closed")
)

// Reason tags a refusal.
type Reason string

// Refusal reasons.
const (
	ReasonAttachmentsUnavailable Reason = "AttachmentsUnavailable"
	ReasonAttachmentMissing      Reason = "AttachmentMissing"
	ReasonNetworkDisallowed      Reason = "NetworkDisallowed"
	ReasonNetworkFetchFailed     Reason = "NetworkFetchFailed"
	ReasonMalformedInline        Reason = "MalformedInline"
	ReasonGuardAlreadyClosed     Reason = "GuardAlreadyClosed"
)

var reasonSentinels = map[Reason]error{
	ReasonAttachmentsUnavailable: ErrAttachmentsUnavailable,
	ReasonAttachmentMissing:      ErrAttachmentMissing,
	ReasonNetworkDisallowed:      ErrNetworkDisallowed,
	ReasonNetworkFetchFailed:     ErrNetworkFetchFailed,
	ReasonMalformedInline:        ErrMalformedInline,
	ReasonGuardAlreadyClosed:     ErrGuardClosed,
}

// IsLifecycleViolation reports whether the reason signals caller misuse
// rather than a refused reference.
func (r Reason) IsLifecycleViolation() bool {
	return r == ReasonGuardAlreadyClosed
}

// Refusal is a recorded failure to resolve one reference.
type Refusal struct {
	Reason    Reason
	Reference string
	Detail    string
	Err       error // underlying cause, if any
}

// Error renders the reason followed by the human-readable detail.
func (r *Refusal) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Unwrap exposes the reason sentinel and the underlying cause.
func (r *Refusal) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := reasonSentinels[r.Reason]; ok {
		errs = append(errs, sentinel)
	}
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	return errs
}

// AggregateError combines two or more refusals recorded during one render.
type AggregateError struct {
	Refusals []*Refusal
}

const aggregateHeader = "multiple resource errors occurred"

// Error lists every refusal in encounter order, one per line.
func (e *AggregateError) Error() string {
	var sb strings.Builder
	sb.WriteString(aggregateHeader)
	for _, r := range e.Refusals {
		sb.WriteByte('\n')
		sb.WriteString(r.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual refusals to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Refusals))
	for i, r := range e.Refusals {
		errs[i] = r
	}
	return errs
}

// Reasons returns the refusal reasons in encounter order.
func (e *AggregateError) Reasons() []Reason {
	reasons := make([]Reason, len(e.Refusals))
	for i, r := range e.Refusals {
		reasons[i] = r.Reason
	}
	return reasons
}

// RefusalsOf extracts the refusals carried by err: a single *Refusal, the members
// of an *AggregateError, or nil when err carries neither.
func RefusalsOf(err error) []*Refusal {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.Refusals
	}
	var r *Refusal
	if errors.As(err, &r) {
		return []*Refusal{r}
	}
	return nil
}

// FetchError is returned by a NetworkFetcher when a remote resource cannot be loaded.
type FetchError struct {
	URL        string
	StatusCode int // zero for transport failures
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.NotFound():
		return "resource not found: " + e.URL
	case e.StatusCode != 0:
		return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	default:
		return "fetching " + e.URL + " failed"
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether the remote answered 404.
func (e *FetchError) NotFound() bool { return e.StatusCode == 404 }
