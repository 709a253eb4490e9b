package render

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Built-in font names. Any other font name is read as a TTF/OTF file path.
const (
	FontRegular = "goregular"
	FontBold    = "gobold"
	FontItalic  = "goitalic"
	FontMono    = "gomono"
)

// ErrUnknownFont is returned when a font name is neither built in nor a
// readable font file.
var ErrUnknownFont = errors.New("render: unknown font")

var builtinFonts = map[string][]byte{
	FontRegular: goregular.TTF,
	FontBold:    gobold.TTF,
	FontItalic:  goitalic.TTF,
	FontMono:    gomono.TTF,
}

// BuiltinFonts lists the fonts available without a file path.
func BuiltinFonts() []string {
	return []string{FontRegular, FontBold, FontItalic, FontMono}
}

// faceMeasurer adapts a font.Face to Measurer.
type faceMeasurer struct {
	face font.Face
}

func (m faceMeasurer) Width(text string) int {
	return font.MeasureString(m.face, text).Ceil()
}

func (m faceMeasurer) LineHeight() int {
	return m.face.Metrics().Height.Ceil()
}

func (m faceMeasurer) Ascent() int {
	return m.face.Metrics().Ascent.Ceil()
}

// faceCache keeps parsed fonts forever and sized faces in a bounded LRU.
// Evicted faces are closed.
type faceCache struct {
	mu     sync.Mutex
	fonts  map[string]*opentype.Font
	faces  *lru.Cache[string, font.Face]
	readFn func(string) ([]byte, error)
}

func newFaceCache(size int) (*faceCache, error) {
	faces, err := lru.NewWithEvict(size, func(_ string, f font.Face) {
		f.Close() //nolint:errcheck // opentype faces never fail to close
	})
	if err != nil {
		return nil, fmt.Errorf("creating face cache: %w", err)
	}
	return &faceCache{
		fonts:  make(map[string]*opentype.Font),
		faces:  faces,
		readFn: os.ReadFile,
	}, nil
}

// face returns the face for name at size points (72 DPI, so points equal
// pixels).
func (c *faceCache) face(name string, size int) (font.Face, error) {
	key := name + "@" + strconv.Itoa(size)
	if f, ok := c.faces.Get(key); ok {
		return f, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	parsed, err := c.parse(name)
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s face at %d: %w", name, size, err)
	}
	c.faces.Add(key, f)
	return f, nil
}

func (c *faceCache) parse(name string) (*opentype.Font, error) {
	if f, ok := c.fonts[name]; ok {
		return f, nil
	}

	data, ok := builtinFonts[name]
	if !ok {
		var err error
		data, err = c.readFn(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownFont, name, err)
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", name, err)
	}
	c.fonts[name] = f
	return f, nil
}

func (c *faceCache) len() int { return c.faces.Len() }

// fixedPoint converts integer pixels to 26.6 fixed point.
func fixedPoint(x, y int) fixed.Point26_6 {
	return fixed.P(x, y)
}
