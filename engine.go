package pdfservice

import (
	"context"

	"github.com/alnah/go-pdfservice/internal/fetch"
)

// FetchFunc resolves one resource reference for the rendering engine.
// A non-nil error means the reference was refused and must not be rendered.
type FetchFunc func(ctx context.Context, reference string) (*fetch.Resource, error)

// RenderInput is everything the engine needs to lay out one document.
type RenderInput struct {
	Markup  []byte
	BaseURL string // empty means the document has no origin of its own
	Fetch   FetchFunc
	Styles  []string
}

// Engine lays out markup into a page model.
type Engine interface {
	Render(ctx context.Context, in RenderInput) (Rendered, error)
}

// Rendered is a laid-out document waiting to be serialized.
// Close must be called once the document is no longer needed.
type Rendered interface {
	WritePDF(ctx context.Context) ([]byte, error)
	Close() error
}
