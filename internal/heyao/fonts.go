package heyao

import (
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// fontSource hands out faces for the bundled TTF file, falling back to the
// built-in basicfont face when the file is missing or unparseable. A parse
// failure is not cached, so a font file that shows up (or gets fixed) later
// is picked up without a restart.
type fontSource struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	parsed *truetype.Font
	faces  map[float64]font.Face
}

func newFontSource(path string, logger *zap.Logger) *fontSource {
	return &fontSource{
		path:   path,
		logger: logger,
		faces:  make(map[float64]font.Face),
	}
}

// Face returns a face at the given point size and whether the built-in
// fallback had to stand in for the bundled font.
func (f *fontSource) Face(size float64) (font.Face, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.parsed == nil {
		data, err := os.ReadFile(f.path)
		if err != nil {
			f.logger.Warn("font file unavailable, using default face",
				zap.String("path", f.path), zap.Error(err))
			return basicfont.Face7x13, true
		}
		parsed, err := truetype.Parse(data)
		if err != nil {
			f.logger.Warn("font file unparseable, using default face",
				zap.String("path", f.path), zap.Error(err))
			return basicfont.Face7x13, true
		}
		f.parsed = parsed
	}

	if face, ok := f.faces[size]; ok {
		return face, false
	}
	face := truetype.NewFace(f.parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	f.faces[size] = face
	return face, false
}
