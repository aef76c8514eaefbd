package pdfservice

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-pdfservice/internal/fetch"
)

// Mock implementations for testing.

// mockEngine behaves like a browser: it requests every reference, ignores
// failed fetches and keeps rendering.
type mockEngine struct {
	mu         sync.Mutex
	calls      int
	input      RenderInput
	references []string
	fetchErrs  []error
	pdf        []byte
	err        error
	panicWith  any
	lateFetch  string // fetched from WritePDF, after the render stage
	doc        *mockRendered
}

func (m *mockEngine) Render(ctx context.Context, in RenderInput) (Rendered, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.input = in
	for _, ref := range m.references {
		_, err := in.Fetch(ctx, ref)
		m.fetchErrs = append(m.fetchErrs, err)
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	m.doc = &mockRendered{pdf: m.pdf, fetch: in.Fetch, lateFetch: m.lateFetch}
	if m.err != nil {
		return m.doc, m.err
	}
	return m.doc, nil
}

func (m *mockEngine) Close() error { return nil }

type mockRendered struct {
	pdf       []byte
	fetch     FetchFunc
	lateFetch string
	closed    int
}

func (m *mockRendered) WritePDF(ctx context.Context) ([]byte, error) {
	if m.lateFetch != "" {
		if _, err := m.fetch(ctx, m.lateFetch); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPDFGeneration, err)
		}
	}
	if m.pdf == nil {
		return []byte("%PDF-1.4 mock"), nil
	}
	return m.pdf, nil
}

func (m *mockRendered) Close() error {
	m.closed++
	return nil
}

// mockCodec records calls and delegates nothing.
type mockCodec struct {
	serializeCalls int
	rotateCalls    int
	encryptCalls   int
	err            error
}

func (m *mockCodec) Serialize(ctx context.Context, doc Rendered) ([]byte, error) {
	m.serializeCalls++
	if m.err != nil {
		return nil, m.err
	}
	return doc.WritePDF(ctx)
}

func (m *mockCodec) Rotate(pdf []byte, angle int) ([]byte, error) {
	m.rotateCalls++
	return pdf, m.err
}

func (m *mockCodec) Encrypt(pdf []byte, password string) ([]byte, error) {
	m.encryptCalls++
	return pdf, m.err
}

type mockNetwork struct {
	mu    sync.Mutex
	calls []string
	res   *fetch.Resource
	err   error
}

func (m *mockNetwork) Fetch(ctx context.Context, rawURL string) (*fetch.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, rawURL)
	if m.err != nil {
		return nil, m.err
	}
	if m.res != nil {
		return m.res, nil
	}
	return &fetch.Resource{Content: []byte("remote"), MediaType: "image/png"}, nil
}

type mockMarkdown struct {
	called bool
	err    error
}

func (m *mockMarkdown) ToHTML(ctx context.Context, content []byte) ([]byte, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte("<html><body>"), append(content, []byte("</body></html>")...)...), nil
}

type mockRecorder struct {
	mu       sync.Mutex
	failures []string
	refusals []string
	renders  int
	sizes    [][2]int
}

func (m *mockRecorder) StageFailed(stage, class string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, fmt.Sprintf("%s/%s/%d", stage, class, status))
}

func (m *mockRecorder) ResourceRefused(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refusals = append(m.refusals, reason)
}

func (m *mockRecorder) RenderDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders++
}

func (m *mockRecorder) DocumentSizes(input, output int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = append(m.sizes, [2]int{input, output})
}

// minimalPDF assembles a small, well-formed PDF with the given number of pages.
func minimalPDF(t *testing.T, pages int) []byte {
	t.Helper()

	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>"}
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		content := fmt.Sprintf("BT /F1 18 Tf 72 720 Td (Page %d) Tj ET", i+1)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R "+
				"/Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >> >>", 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
