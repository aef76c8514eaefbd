package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

// HTTP fetcher defaults.
const (
	DefaultFetchTimeout  = 15 * time.Second
	DefaultMaxRedirects  = 5
	DefaultMaxFetchBytes = 20 << 20
	userAgent            = "go-pdfservice/1 (+resource fetch)"
)

// HTTPFetcher loads remote resources with resty.
type HTTPFetcher struct {
	client   *resty.Client
	maxBytes int
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithFetchTimeout bounds each remote fetch.
func WithFetchTimeout(d time.Duration) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.SetTimeout(d)
		}
	}
}

// WithMaxFetchBytes rejects remote bodies larger than n bytes.
func WithMaxFetchBytes(n int) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPFetcher returns a fetcher with a bounded timeout and redirect chain.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	client := resty.New().
		SetTimeout(DefaultFetchTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(DefaultMaxRedirects)).
		SetHeader("User-Agent", userAgent)

	f := &HTTPFetcher{client: client, maxBytes: DefaultMaxFetchBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL. Non-2xx answers become *FetchError carrying the status code.
// Reading stops as soon as the body exceeds the size limit.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetResponseBodyLimit(f.maxBytes).
		Get(rawURL)
	if err != nil {
		if errors.Is(err, resty.ErrResponseBodyTooLarge) {
			err = fmt.Errorf("body exceeds limit of %d bytes", f.maxBytes)
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode()}
	}

	body := resp.Body()
	mediaType := resp.Header().Get("Content-Type")
	if mediaType == "" {
		mediaType = mimetype.Detect(body).String()
	}
	return &Resource{Content: body, MediaType: mediaType}, nil
}

// Compile-time interface check.
var _ NetworkFetcher = (*HTTPFetcher)(nil)
