// Package render lays out and draws button faces.
//
// WrapLines, MaxWidth and Offset implement the text layout against a
// Measurer so they can be exercised without a real font. Renderer combines
// them with golang.org/x/image fonts to produce the bitmap pushed to a key.
//
//	r, _ := render.New(render.Config{})
//	img, err := r.Render(style.Default(3), 72)
package render
