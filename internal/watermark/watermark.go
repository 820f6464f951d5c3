// Package watermark renders the degraded-success overlay returned when the
// model produced nothing usable.
package watermark

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"go-fitting-room/internal/imaging"
	"go-fitting-room/internal/logger"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultFontSize = 20.0
	margin          = 10.0
)

// textColor is white at roughly 70% opacity.
var textColor = color.NRGBA{R: 255, G: 255, B: 255, A: 180}

// FontSource names where the renderer's face came from.
type FontSource string

const (
	FontSourceFile    FontSource = "file"
	FontSourceBuiltin FontSource = "goregular"
	FontSourceBitmap  FontSource = "basicfont"
)

// Renderer draws text in the bottom-right corner of an image.
type Renderer struct {
	// font.Face implementations keep glyph caches and are not safe for concurrent use
	mu     sync.Mutex
	face   font.Face
	source FontSource
}

// NewRenderer resolves a font face: the TTF at fontPath if it loads, then the
// embedded Go Regular face, then the 7x13 bitmap face. It never fails.
func NewRenderer(fontPath string, size float64) *Renderer {
	if size <= 0 {
		size = DefaultFontSize
	}

	if fontPath != "" {
		face, err := loadFontFile(fontPath, size)
		if err == nil {
			return &Renderer{face: face, source: FontSourceFile}
		}
		logger.WithError(err).WithField("font_path", fontPath).Warn("Watermark font unavailable, using built-in font")
	}

	if face, err := parseFace(goregular.TTF, size); err == nil {
		return &Renderer{face: face, source: FontSourceBuiltin}
	}

	return &Renderer{face: basicfont.Face7x13, source: FontSourceBitmap}
}

// Source reports which font the renderer ended up with.
func (r *Renderer) Source() FontSource {
	return r.source
}

// Apply returns a copy of img with text overlaid. The result always has the
// same dimensions as img; if drawing fails the plain RGB copy is returned.
func (r *Renderer) Apply(img image.Image, text string) (out image.Image) {
	base := imaging.ToRGB(img)
	if text == "" || base.Bounds().Empty() {
		return base
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.WithFields(logrus.Fields{
				"panic": rec,
				"text":  text,
			}).Error("Watermark rendering failed, returning unmarked image")
			out = base
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContextForRGBA(cloneRGBA(base))
	dc.SetFontFace(r.face)
	tw, th := dc.MeasureString(text)

	w, h := float64(base.Bounds().Dx()), float64(base.Bounds().Dy())
	x := w - tw - margin
	y := h - th - margin

	dc.SetColor(textColor)
	// DrawStringAnchored with ay=1 puts the top of the text at y
	dc.DrawStringAnchored(text, x, y, 0, 1)

	return dc.Image()
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func loadFontFile(path string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return parseFace(fontBytes, size)
}

func parseFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
