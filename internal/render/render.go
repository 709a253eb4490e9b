package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"

	// Decoders for background images.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/nerrad567/streamdeckx/internal/style"
)

// Defaults for Config fields left zero.
const (
	DefaultTopOffset = 10
	DefaultCacheSize = 32
)

// ErrInvalidSize is returned when asked for a face smaller than one pixel.
var ErrInvalidSize = errors.New("render: size must be positive")

// Config configures a Renderer.
type Config struct {
	// TopOffset is the distance in pixels from the top edge to the top of
	// the first text line.
	TopOffset int

	// DefaultFont is used for styles with no font. Defaults to goregular.
	DefaultFont string

	// CacheSize bounds the number of sized font faces kept open.
	CacheSize int
}

// Renderer composes button faces. It is safe for concurrent use.
type Renderer struct {
	mu    sync.Mutex
	cfg   Config
	faces *faceCache
}

// New creates a Renderer, filling zero Config fields with defaults.
func New(cfg Config) (*Renderer, error) {
	if cfg.TopOffset < 0 {
		return nil, fmt.Errorf("render: top offset must not be negative, got %d", cfg.TopOffset)
	}
	if cfg.TopOffset == 0 {
		cfg.TopOffset = DefaultTopOffset
	}
	if cfg.DefaultFont == "" {
		cfg.DefaultFont = FontRegular
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	faces, err := newFaceCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg, faces: faces}, nil
}

// Measurer returns the glyph metrics of fontName at size. An empty name
// selects the default font.
func (r *Renderer) Measurer(fontName string, size int) (Measurer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	face, err := r.face(fontName, size)
	if err != nil {
		return nil, err
	}
	return faceMeasurer{face: face}, nil
}

func (r *Renderer) face(fontName string, size int) (font.Face, error) {
	if fontName == "" {
		fontName = r.cfg.DefaultFont
	}
	if size <= 0 {
		size = style.DefaultFontSize
	}
	return r.faces.face(fontName, size)
}

// Render draws s onto a size×size canvas. The background colour fills the
// canvas and a background image, if present, is scaled over it. The label
// is wrapped to the canvas width and drawn as one horizontally centred
// block starting TopOffset pixels from the top.
func (r *Renderer) Render(s style.Style, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	bg, err := colorOrDefault(s.BackgroundColor, style.DefaultBackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("background colour: %w", err)
	}
	fg, err := colorOrDefault(s.TextColor, style.DefaultTextColor)
	if err != nil {
		return nil, fmt.Errorf("text colour: %w", err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if s.BackgroundImage != "" {
		img, err := DecodeImage(s.BackgroundImage)
		if err != nil {
			return nil, err
		}
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	face, err := r.face(s.Font, s.FontSize)
	if err != nil {
		return nil, err
	}
	m := faceMeasurer{face: face}

	lines := WrapLines(s.Label, size, m)
	left := Offset(size, MaxWidth(lines, m))

	d := font.Drawer{Dst: canvas, Src: image.NewUniform(fg), Face: face}
	baseline := r.cfg.TopOffset + m.Ascent()
	for i, line := range lines {
		d.Dot = fixedPoint(left, baseline+i*m.LineHeight())
		d.DrawString(line)
	}
	return canvas, nil
}

func colorOrDefault(hex, fallback string) (color.RGBA, error) {
	if hex == "" {
		hex = fallback
	}
	return style.ParseHexColor(hex)
}

// DecodeImage decodes a base64 bitmap, optionally carrying a data URL
// prefix such as "data:image/png;base64,". PNG, JPEG, GIF, BMP and WebP
// are understood.
func DecodeImage(encoded string) (image.Image, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding background image base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding background image: %w", err)
	}
	return img, nil
}

// EncodePNGBase64 encodes img as a base64 PNG, the form the configuration
// UI shows as a face preview.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
