package compose

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "…"

// Truncate trims s and, if it is longer than budget runes, cuts it to
// budget-1 runes, strips trailing whitespace and appends an ellipsis.
// Truncate(Truncate(s, n), n) == Truncate(s, n).
func Truncate(s string, budget int) string {
	s = strings.TrimSpace(s)
	if budget < 1 {
		return ""
	}
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:budget-1]), unicode.IsSpace) + ellipsis
}
