// Package style holds the presentation of a single button face.
package style

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Defaults applied to a button that has no stored style.
const (
	DefaultFontSize        = 16
	DefaultBackgroundColor = "#000000"
	DefaultTextColor       = "#ffffff"
)

// ErrInvalidColor is returned for colour strings that are not #rgb or #rrggbb.
var ErrInvalidColor = errors.New("style: invalid hex colour")

// Style is the label, font and colours of a button face. An empty Font
// selects the renderer's default font. BackgroundImage, when set, is a
// base64 encoded bitmap that replaces the background colour.
type Style struct {
	Label           string `json:"label"`
	Font            string `json:"font"`
	FontSize        int    `json:"font_size"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	BackgroundImage string `json:"background_image,omitempty"`
}

// Default is the style of an unconfigured button: its position as label.
func Default(position int) Style {
	return Style{
		Label:           strconv.Itoa(position),
		FontSize:        DefaultFontSize,
		BackgroundColor: DefaultBackgroundColor,
		TextColor:       DefaultTextColor,
	}
}

// Equal reports whether s and o share label, font and background image.
// Colours and font size are appearance only and do not take part.
func (s Style) Equal(o Style) bool {
	return s.Label == o.Label && s.Font == o.Font && s.BackgroundImage == o.BackgroundImage
}

// Validate checks the colour fields and font size.
func (s Style) Validate() error {
	var errs []error
	if s.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("style: font size must be positive, got %d", s.FontSize))
	}
	if _, err := ParseHexColor(s.BackgroundColor); err != nil {
		errs = append(errs, fmt.Errorf("background colour: %w", err))
	}
	if _, err := ParseHexColor(s.TextColor); err != nil {
		errs = append(errs, fmt.Errorf("text colour: %w", err))
	}
	return errors.Join(errs...)
}

// ParseHexColor parses "#rgb" or "#rrggbb" (case-insensitive) into an
// opaque colour.
func ParseHexColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
