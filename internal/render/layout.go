package render

import (
	"math"
	"strings"
)

// Measurer reports glyph metrics for one font at one size, in pixels.
type Measurer interface {
	// Width is the advance width of text.
	Width(text string) int
	// LineHeight is the distance between consecutive baselines.
	LineHeight() int
	// Ascent is the distance from the top of a line to its baseline.
	Ascent() int
}

// WrapLines splits label into lines no wider than width where possible.
//
// A label that fits is returned unchanged as the only line. Otherwise words
// are added greedily: each word is staged onto the current line and, when
// the staged line is wider than width, the line is committed without it and
// the word starts the next line. A word wider than width on its own is
// never split and simply overflows its line. An empty label yields a single
// empty line.
func WrapLines(label string, width int, m Measurer) []string {
	if label == "" || m.Width(label) <= width {
		return []string{label}
	}

	words := strings.Fields(label)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		staged := current + " " + word
		if m.Width(staged) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current = staged
	}
	return append(lines, current)
}

// MaxWidth is the width of the widest line.
func MaxWidth(lines []string, m Measurer) int {
	widest := 0
	for _, l := range lines {
		widest = max(widest, m.Width(l))
	}
	return widest
}

// Offset is the left margin that centres a block of text maxWidth wide
// within bounding. Halves round to even. The same offset applies to every
// line of the block.
func Offset(bounding, maxWidth int) int {
	return int(math.RoundToEven(float64(bounding-maxWidth) / 2))
}
