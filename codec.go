package pdfservice

import (
	"context"

	"github.com/alnah/go-pdfservice/internal/pdfops"
)

// Codec turns rendered documents into bytes and transforms serialized PDFs.
type Codec interface {
	Serialize(ctx context.Context, doc Rendered) ([]byte, error)
	Rotate(pdf []byte, angle int) ([]byte, error)
	Encrypt(pdf []byte, password string) ([]byte, error)
}

// Compile-time interface check
var _ Codec = (*PDFCodec)(nil)

// PDFCodec implements Codec with pdfcpu.
type PDFCodec struct{}

// NewPDFCodec creates the production codec.
func NewPDFCodec() *PDFCodec {
	return &PDFCodec{}
}

// Serialize writes doc as PDF and checks the engine produced a PDF stream.
func (c *PDFCodec) Serialize(ctx context.Context, doc Rendered) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf, err := doc.WritePDF(ctx)
	if err != nil {
		return nil, err
	}
	if err := pdfops.CheckHeader(pdf); err != nil {
		return nil, err
	}
	return pdf, nil
}

// Rotate turns every page clockwise by angle degrees.
func (c *PDFCodec) Rotate(pdf []byte, angle int) ([]byte, error) {
	return pdfops.Rotate(pdf, angle)
}

// Encrypt applies AES-256 password protection, refusing already encrypted input.
func (c *PDFCodec) Encrypt(pdf []byte, password string) ([]byte, error) {
	return pdfops.Encrypt(pdf, password)
}
