package heyao

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/heyao-tools/heyaobot/pkg/utils"
)

const (
	templateFile   = "hymb.png"
	fontFile       = "FZSTK.TTF"
	scratchDirName = "temp_images"

	fieldFontSize = 80
)

// fieldLayout pins each display field to its slot on the template. The
// coordinates are the top-left corner of the text, matching how the blank
// template was designed.
var fieldLayout = []struct {
	key string
	pos image.Point
}{
	{"v0", image.Pt(1490, 1030)},
	{"v1", image.Pt(1450, 1300)},
	{"v2", image.Pt(1100, 1570)},
	{"v3", image.Pt(1440, 1850)},
	{"v4", image.Pt(1000, 2110)},
	{"v5", image.Pt(1440, 2380)},
}

var timestampPos = image.Pt(1210, 2680)

// DrawStatus reports how a single text draw went.
type DrawStatus string

const (
	DrawOK       DrawStatus = "drawn"
	DrawFallback DrawStatus = "fallback-font"
	DrawFailed   DrawStatus = "failed"
)

// FieldResult is the per-field outcome of one render pass.
type FieldResult struct {
	Field  string     `json:"field"`
	Status DrawStatus `json:"status"`
}

// ImageRenderer draws order details onto the bundled notification template.
type ImageRenderer struct {
	baseDir string
	fonts   *fontSource
	logger  *zap.Logger
}

// NewImageRenderer creates a renderer rooted at baseDir, which holds the
// template image and font file and receives the scratch directory.
func NewImageRenderer(baseDir string, logger *zap.Logger) *ImageRenderer {
	return &ImageRenderer{
		baseDir: baseDir,
		fonts:   newFontSource(filepath.Join(baseDir, fontFile), logger),
		logger:  logger,
	}
}

// AssetStatus reports whether the bundled template and font are readable.
func (r *ImageRenderer) AssetStatus() map[string]string {
	status := make(map[string]string)
	for name, file := range map[string]string{"template": templateFile, "font": fontFile} {
		if _, err := os.Stat(filepath.Join(r.baseDir, file)); err != nil {
			status[name] = "missing"
		} else {
			status[name] = "ok"
		}
	}
	return status
}

// Render draws the six display fields plus a generation timestamp onto a
// copy of the template and saves it as a uniquely named PNG under the
// scratch directory. The report carries one entry per draw call; a single
// failed or degraded field never aborts the pass.
func (r *ImageRenderer) Render(details OrderDetails) (string, []FieldResult, error) {
	r.logger.Info("starting image generation")
	src, err := imaging.Open(filepath.Join(r.baseDir, templateFile))
	if err != nil {
		r.logger.Error("opening template failed", zap.Error(err))
		return "", nil, fmt.Errorf("open template: %w", err)
	}
	canvas := imaging.Clone(src)

	report := make([]FieldResult, 0, len(fieldLayout)+1)
	for _, f := range fieldLayout {
		status := r.drawText(canvas, details.Field(f.key), f.pos)
		report = append(report, FieldResult{Field: f.key, Status: status})
	}

	now := time.Now()
	status := r.drawText(canvas, now.Format("2006-01-02 15:04:05"), timestampPos)
	report = append(report, FieldResult{Field: "timestamp", Status: status})

	scratch := filepath.Join(r.baseDir, scratchDirName)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", report, fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(scratch, utils.NotificationFilename(details.Field("v0"), now))
	if err := imaging.Save(canvas, path); err != nil {
		r.logger.Error("saving generated image failed", zap.String("path", path), zap.Error(err))
		return "", report, fmt.Errorf("save image: %w", err)
	}
	r.logger.Info("generated image saved", zap.String("path", path))
	return path, report, nil
}

// drawText renders one string with its top-left corner at pos. The face
// library can panic on malformed glyph data, so the draw is guarded; a
// failure is contained to this one call.
func (r *ImageRenderer) drawText(dst *image.NRGBA, text string, pos image.Point) (status DrawStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("text draw panicked", zap.String("text", text), zap.Any("panic", rec))
			status = DrawFailed
		}
	}()

	face, fallback := r.fonts.Face(fieldFontSize)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(pos.X, pos.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	if fallback {
		return DrawFallback
	}
	return DrawOK
}
