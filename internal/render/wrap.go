package render

import (
	"strings"

	"golang.org/x/image/font"
)

// wrapText breaks text into lines that fit maxWidth when measured with face.
// The wrap is greedy: words accumulate onto a line until adding the next word
// would exceed maxWidth. A single word wider than maxWidth is placed alone on
// its line; words are never broken mid-word. Explicit newlines are respected.
func wrapText(face font.Face, text string, maxWidth int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if font.MeasureString(face, candidate).Ceil() <= maxWidth {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		lines = append(lines, current)
	}
	return lines
}
