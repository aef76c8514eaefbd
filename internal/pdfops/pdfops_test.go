package pdfops

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// buildPDF assembles a minimal, well-formed PDF with the given number of pages.
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()

	var objects []string
	kids := ""
	for i := 0; i < pages; i++ {
		pageNum := 3 + 2*i
		kids += fmt.Sprintf("%d 0 R ", pageNum)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages),
	)
	for i := 0; i < pages; i++ {
		content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1)
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

func TestValidRotation(t *testing.T) {
	t.Parallel()

	for _, angle := range []int{90, 180, 270} {
		if !ValidRotation(angle) {
			t.Errorf("ValidRotation(%d) = false", angle)
		}
	}
	for _, angle := range []int{0, 45, -90, 360, 450} {
		if ValidRotation(angle) {
			t.Errorf("ValidRotation(%d) = true", angle)
		}
	}
}

func TestCheckHeader(t *testing.T) {
	t.Parallel()

	if err := CheckHeader([]byte("%PDF-1.7\n")); err != nil {
		t.Errorf("CheckHeader(valid) = %v", err)
	}
	if err := CheckHeader([]byte("<html>")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("CheckHeader(html) = %v, want ErrNotPDF", err)
	}
	if err := CheckHeader(nil); !errors.Is(err, ErrNotPDF) {
		t.Errorf("CheckHeader(nil) = %v, want ErrNotPDF", err)
	}
}

func TestPageCount(t *testing.T) {
	t.Parallel()

	n, err := PageCount(buildPDF(t, 3), "")
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("PageCount() = %d, want 3", n)
	}
}

func TestRotate(t *testing.T) {
	t.Parallel()

	src := buildPDF(t, 2)

	for _, angle := range []int{90, 180, 270} {
		angle := angle
		t.Run(fmt.Sprint(angle), func(t *testing.T) {
			t.Parallel()
			out, err := Rotate(src, angle)
			if err != nil {
				t.Fatalf("Rotate(%d) error = %v", angle, err)
			}
			if bytes.Equal(out, src) {
				t.Error("rotated output is identical to input")
			}
			n, err := PageCount(out, "")
			if err != nil {
				t.Fatalf("PageCount() error = %v", err)
			}
			if n != 2 {
				t.Errorf("page count = %d, want 2", n)
			}
		})
	}

	t.Run("invalid angle", func(t *testing.T) {
		t.Parallel()
		if _, err := Rotate(src, 45); !errors.Is(err, ErrInvalidRotation) {
			t.Errorf("Rotate(45) = %v, want ErrInvalidRotation", err)
		}
	})

	t.Run("not a PDF", func(t *testing.T) {
		t.Parallel()
		if _, err := Rotate([]byte("hello"), 90); !errors.Is(err, ErrNotPDF) {
			t.Errorf("Rotate(non-PDF) = %v, want ErrNotPDF", err)
		}
	})
}

func TestEncrypt(t *testing.T) {
	t.Parallel()

	src := buildPDF(t, 1)

	out, err := Encrypt(src, "s3cret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	t.Run("reports encrypted", func(t *testing.T) {
		t.Parallel()
		enc, err := IsEncrypted(out)
		if err != nil {
			t.Fatalf("IsEncrypted() error = %v", err)
		}
		if !enc {
			t.Error("IsEncrypted() = false after Encrypt")
		}
	})

	t.Run("plain input is not encrypted", func(t *testing.T) {
		t.Parallel()
		enc, err := IsEncrypted(src)
		if err != nil {
			t.Fatalf("IsEncrypted() error = %v", err)
		}
		if enc {
			t.Error("IsEncrypted() = true for plain PDF")
		}
	})

	t.Run("unreadable without password", func(t *testing.T) {
		t.Parallel()
		if _, err := PageCount(out, ""); err == nil {
			t.Error("PageCount() without password succeeded")
		}
	})

	t.Run("readable with password", func(t *testing.T) {
		t.Parallel()
		n, err := PageCount(out, "s3cret")
		if err != nil {
			t.Fatalf("PageCount() with password error = %v", err)
		}
		if n != 1 {
			t.Errorf("page count = %d, want 1", n)
		}
	})

	t.Run("refuses double encryption", func(t *testing.T) {
		t.Parallel()
		if _, err := Encrypt(out, "other"); !errors.Is(err, ErrAlreadyEncrypted) {
			t.Errorf("Encrypt(encrypted) = %v, want ErrAlreadyEncrypted", err)
		}
	})

	t.Run("empty password", func(t *testing.T) {
		t.Parallel()
		if _, err := Encrypt(src, ""); !errors.Is(err, ErrEmptyPassword) {
			t.Errorf("Encrypt(\"\") = %v, want ErrEmptyPassword", err)
		}
	})
}
