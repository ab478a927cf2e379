package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxMessageRunes = 200
	MaxNameRunes    = 16
)

// Sanitize trims a chat line, drops control characters and truncates it to
// max runes. ok is false when nothing printable remains.
func Sanitize(s string, max int) (clean string, ok bool) {
	s = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s, true
}

// Name cleans a display name, falling back when it is blank.
func Name(s, fallback string) string {
	clean, ok := Sanitize(s, MaxNameRunes)
	if !ok {
		return fallback
	}
	return clean
}
