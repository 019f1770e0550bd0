package heyao

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"
)

func TestFontSourceRecoversWhenFontAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fontFile)
	fs := newFontSource(path, zap.NewNop())

	if _, fallback := fs.Face(80); !fallback {
		t.Fatal("expected fallback while the font file is missing")
	}

	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, fallback := fs.Face(80); fallback {
		t.Fatal("expected the bundled font once the file appeared")
	}
}

func TestFontSourceCachesFaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, fontFile)
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	fs := newFontSource(path, zap.NewNop())

	first, fallback := fs.Face(80)
	if fallback {
		t.Fatal("unexpected fallback")
	}
	second, _ := fs.Face(80)
	if first != second {
		t.Error("same size returned distinct faces")
	}
	other, _ := fs.Face(40)
	if other == first {
		t.Error("different sizes share a face")
	}
}
