package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen caps form fields at the longest valid email address.
const maxInputLen = 254

// editRune applies key to a form field: backspace drops the last rune and
// any single-rune key is appended while the field has room.
func editRune(text, key string) string {
	if key == "backspace" {
		_, size := utf8.DecodeLastRuneInString(text)
		return text[:len(text)-size]
	}
	if utf8.RuneCountInString(key) != 1 || utf8.RuneCountInString(text) >= maxInputLen {
		return text
	}
	return text + key
}

// mask hides a password behind bullets.
func mask(s string) string {
	return strings.Repeat("•", utf8.RuneCountInString(s))
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// truncateToHeight keeps the first maxLines lines of s. A non-positive
// maxLines leaves s alone.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "")
}
