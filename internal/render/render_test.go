package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/nerrad567/streamdeckx/internal/style"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestNewDefaults(t *testing.T) {
	r := newTestRenderer(t)
	if r.cfg.TopOffset != DefaultTopOffset || r.cfg.DefaultFont != FontRegular || r.cfg.CacheSize != DefaultCacheSize {
		t.Errorf("defaults not applied: %+v", r.cfg)
	}
	if _, err := New(Config{TopOffset: -1}); err == nil {
		t.Error("New() with negative offset should fail")
	}
}

func TestRenderBackgroundAndText(t *testing.T) {
	r := newTestRenderer(t)

	s := style.Default(3)
	s.BackgroundColor = "#ff0000"
	s.TextColor = "#00ff00"

	img, err := r.Render(s, 72)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 72, 72) {
		t.Fatalf("bounds = %v, want 72x72", img.Bounds())
	}

	// The corner is outside any glyph.
	if got := img.RGBAAt(0, 71); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("corner pixel = %v, want red", got)
	}

	var green bool
	for y := 0; y < 72 && !green; y++ {
		for x := 0; x < 72; x++ {
			if c := img.RGBAAt(x, y); c.G > c.R {
				green = true
				break
			}
		}
	}
	if !green {
		t.Error("label glyphs not drawn")
	}
}

func TestRenderBackgroundImage(t *testing.T) {
	r := newTestRenderer(t)

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff // opaque white
	}
	encoded, err := EncodePNGBase64(src)
	if err != nil {
		t.Fatalf("EncodePNGBase64() error = %v", err)
	}

	s := style.Default(0)
	s.Label = ""
	s.BackgroundImage = "data:image/png;base64," + encoded

	img, err := r.Render(s, 16)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := img.RGBAAt(8, 8); got.R < 240 || got.G < 240 || got.B < 240 {
		t.Errorf("centre pixel = %v, want scaled white image", got)
	}
}

func TestRenderErrors(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name    string
		modify  func(*style.Style)
		size    int
		wantErr error
	}{
		{"zero size", func(*style.Style) {}, 0, ErrInvalidSize},
		{"bad colour", func(s *style.Style) { s.BackgroundColor = "red" }, 72, style.ErrInvalidColor},
		{"missing font file", func(s *style.Style) { s.Font = "/nonexistent/font.ttf" }, 72, ErrUnknownFont},
		{"bad image", func(s *style.Style) { s.BackgroundImage = "!!!" }, 72, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := style.Default(1)
			tt.modify(&s)
			_, err := r.Render(s, tt.size)
			if err == nil {
				t.Fatal("Render() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Render() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMeasurerWrapsRealFont(t *testing.T) {
	r := newTestRenderer(t)
	m, err := r.Measurer(FontBold, 16)
	if err != nil {
		t.Fatalf("Measurer() error = %v", err)
	}
	if m.Width("W") <= m.Width("i") {
		t.Error("proportional font should make W wider than i")
	}
	if m.LineHeight() <= 0 || m.Ascent() <= 0 {
		t.Errorf("metrics = height %d ascent %d, want positive", m.LineHeight(), m.Ascent())
	}

	lines := WrapLines("Open Visual Studio Code", 72, m)
	if len(lines) < 2 {
		t.Errorf("expected wrap at 72px, got %q", lines)
	}
}

func TestFaceCacheBounded(t *testing.T) {
	r, err := New(Config{CacheSize: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, size := range []int{10, 12, 14, 16} {
		if _, err := r.Measurer("", size); err != nil {
			t.Fatalf("Measurer(%d) error = %v", size, err)
		}
	}
	if n := r.faces.len(); n != 2 {
		t.Errorf("cached faces = %d, want 2", n)
	}
}

func TestEncodePNGBase64(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	encoded, err := EncodePNGBase64(img)
	if err != nil {
		t.Fatalf("EncodePNGBase64() error = %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("not base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
}
