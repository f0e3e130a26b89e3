// ABOUTME: Splits long replies into Telegram-sized messages
// ABOUTME: Prefers paragraph breaks, then line breaks, then sentence ends, then a hard cut
package telegram

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for one text message, in UTF-16 code units
const MaxMessageLength = 4096

var separators = []string{"\n\n", "\r\n\r\n", "\n", ". ", " "}

// SplitMessage breaks text into pieces of at most limit UTF-16 code units.
// Text that fits is returned unchanged as a single piece.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var parts []string
	for textLength(text) > limit {
		cut := cutPoint(text, limit)
		head := strings.TrimRight(text[:cut], " \r\n")
		if head != "" {
			parts = append(parts, head)
		}
		text = strings.TrimLeft(text[cut:], " \r\n")
	}
	if strings.TrimSpace(text) != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

// textLength counts text the way Telegram does, in UTF-16 code units
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}

// cutPoint returns a byte offset at most limit units in, at the latest natural break
func cutPoint(text string, limit int) int {
	window := prefixUnits(text, limit)
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return i + len(sep)
		}
	}
	return len(window)
}

// prefixUnits returns the longest prefix of s that fits in n UTF-16 units,
// always at least one rune so splitting makes progress
func prefixUnits(s string, n int) string {
	i, units := 0, 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		w := utf16Len(r)
		if units+w > n && i > 0 {
			break
		}
		units += w
		i += size
	}
	return s[:i]
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	// invalid runes are sent as U+FFFD
	return 1
}
