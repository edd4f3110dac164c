package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Title turns snake_case or lower-case identifiers into display text,
// e.g. "timer_due" becomes "Timer Due". Empty input yields "-".
func Title(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "-"
	}
	return titleCaser.String(strings.ReplaceAll(trimmed, "_", " "))
}
