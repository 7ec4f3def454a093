package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// StripCodeFence removes a leading ```json / ``` marker and a trailing ```
// marker from model output.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return text
}

// markerPattern matches the shortest span between start and end.
func markerPattern(start, end string) *regexp.Regexp {
	return regexp.MustCompile("(?s)" + regexp.QuoteMeta(start) + "(.*?)" + regexp.QuoteMeta(end))
}

// StripControlChars drops ASCII control characters (0x00-0x1F and 0x7F) and
// reports how many were removed.
func StripControlChars(s string) (string, int) {
	removed := 0
	out := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			removed++
			return -1
		}
		return r
	}, s)
	return out, removed
}

func snippet(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
