package search

import (
	"strings"
	"unicode/utf8"
)

const (
	excerptWindow = 200
	excerptLead   = 50
)

// excerpt returns a window of text around the first hit of any query word,
// with ellipses marking truncation. Without a hit it falls back to the head
// of the text.
func excerpt(text string, words []string) string {
	if len(text) <= excerptWindow {
		return text
	}

	lower := strings.ToLower(text)
	hit := -1
	for _, w := range words {
		if idx := strings.Index(lower, w); idx >= 0 && (hit < 0 || idx < hit) {
			hit = idx
		}
	}

	start := 0
	if hit > excerptLead {
		start = hit - excerptLead
	}
	end := start + excerptWindow
	if end > len(text) {
		end = len(text)
		if start = end - excerptWindow; start < 0 {
			start = 0
		}
	}

	// Snap both cuts to rune boundaries so multi-byte characters survive.
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}

	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}
