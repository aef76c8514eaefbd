package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestEmbeddedLoader(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	t.Run("print style", func(t *testing.T) {
		t.Parallel()
		css, err := loader.LoadStyle("print")
		if err != nil {
			t.Fatalf("LoadStyle(print) error = %v", err)
		}
		if !strings.Contains(css, "@page") {
			t.Error("print style should define @page")
		}
	})

	t.Run("unknown style", func(t *testing.T) {
		t.Parallel()
		if _, err := loader.LoadStyle("nonexistent"); !errors.Is(err, ErrStyleNotFound) {
			t.Errorf("LoadStyle() error = %v, want ErrStyleNotFound", err)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()
		if _, err := loader.LoadStyle("../print"); !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("LoadStyle() error = %v, want ErrInvalidAssetName", err)
		}
	})

	t.Run("names", func(t *testing.T) {
		t.Parallel()
		names := loader.Names()
		if len(names) == 0 || names[0] != "print" {
			t.Errorf("Names() = %v, want [print]", names)
		}
	})
}

func TestNewFilesystemLoader(t *testing.T) {
	t.Parallel()

	t.Run("valid directory", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFilesystemLoader(t.TempDir()); err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFilesystemLoader(""); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("error = %v, want ErrInvalidBasePath", err)
		}
	})

	t.Run("nonexistent directory", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFilesystemLoader("/nonexistent/path/abc123xyz"); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("error = %v, want ErrInvalidBasePath", err)
		}
	})

	t.Run("file instead of directory", func(t *testing.T) {
		t.Parallel()
		filePath := filepath.Join(t.TempDir(), "file.css")
		writeFile(t, filePath, "a{}")
		if _, err := NewFilesystemLoader(filePath); !errors.Is(err, ErrInvalidBasePath) {
			t.Errorf("error = %v, want ErrInvalidBasePath", err)
		}
	})
}

func TestFilesystemLoader_LoadStyles(t *testing.T) {
	t.Parallel()

	t.Run("sorted css files only", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "20-fonts.css"), "b{}")
		writeFile(t, filepath.Join(dir, "10-base.CSS"), "a{}")
		writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
		if err := os.Mkdir(filepath.Join(dir, "nested.css"), 0o755); err != nil {
			t.Fatal(err)
		}

		loader, err := NewFilesystemLoader(dir)
		if err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
		got, err := loader.LoadStyles()
		if err != nil {
			t.Fatalf("LoadStyles() error = %v", err)
		}
		if len(got) != 2 || got[0] != "a{}" || got[1] != "b{}" {
			t.Errorf("LoadStyles() = %q, want [a{} b{}]", got)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		t.Parallel()
		loader, err := NewFilesystemLoader(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
		got, err := loader.LoadStyles()
		if err != nil || len(got) != 0 {
			t.Errorf("LoadStyles() = %q, %v", got, err)
		}
	})

	t.Run("symlink escaping directory", func(t *testing.T) {
		t.Parallel()
		outside := t.TempDir()
		writeFile(t, filepath.Join(outside, "secret.css"), "secret{}")

		dir := t.TempDir()
		if err := os.Symlink(filepath.Join(outside, "secret.css"), filepath.Join(dir, "evil.css")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		loader, err := NewFilesystemLoader(dir)
		if err != nil {
			t.Fatalf("NewFilesystemLoader() error = %v", err)
		}
		if _, err := loader.LoadStyles(); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("LoadStyles() error = %v, want ErrPathTraversal", err)
		}
	})
}

func TestLoadStyles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "brand.css"), "h1{color:red}")

	tests := []struct {
		name    string
		builtin string
		dir     string
		want    int
		wantErr error
	}{
		{name: "nothing configured", want: 0},
		{name: "builtin only", builtin: "print", want: 1},
		{name: "directory only", dir: dir, want: 1},
		{name: "builtin then directory", builtin: "print", dir: dir, want: 2},
		{name: "unknown builtin", builtin: "fancy", wantErr: ErrStyleNotFound},
		{name: "bad directory", dir: filepath.Join(dir, "missing"), wantErr: ErrInvalidBasePath},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := LoadStyles(tt.builtin, tt.dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadStyles() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyles() error = %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("LoadStyles() returned %d styles, want %d", len(got), tt.want)
			}
			if tt.want == 2 && got[1] != "h1{color:red}" {
				t.Errorf("directory styles should follow the builtin, got %q", got)
			}
		})
	}
}
