package pdfservice

import (
	"fmt"

	"github.com/alnah/go-pdfservice/internal/fetch"
	"github.com/alnah/go-pdfservice/internal/pdfops"
)

// MarkupFormat identifies the source language of a document.
type MarkupFormat int

const (
	FormatHTML MarkupFormat = iota
	FormatMarkdown
)

func (f MarkupFormat) String() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatMarkdown:
		return "markdown"
	}
	return fmt.Sprintf("MarkupFormat(%d)", int(f))
}

// Attachment is a named file a document can reference by relative path.
type Attachment = fetch.Attachment

// Output filenames suggested to clients.
const (
	FilenameGenerated = "generated.pdf"
	FilenameEncrypted = "encrypted.pdf"
	FilenameRotated   = "rotated.pdf"
)

// Request is a decoded document conversion request.
// It is built once and not modified by the pipeline.
type Request struct {
	Markup       []byte
	Format       MarkupFormat
	Attachments  []Attachment
	BaseURL      string
	AllowNetwork bool
	Rotation     int    // 0 means no rotation
	Password     string // empty means no encryption
}

// Validate checks the optional post-processing parameters.
func (r *Request) Validate() error {
	if r.Rotation != 0 && !validRotation(r.Rotation) {
		return fmt.Errorf("%w: got %d", ErrInvalidRotation, r.Rotation)
	}
	return nil
}

// Result is a finished document plus sizes for observability.
type Result struct {
	PDF        []byte
	Filename   string
	InputSize  int
	OutputSize int
}

func validRotation(angle int) bool {
	return pdfops.ValidRotation(angle)
}
