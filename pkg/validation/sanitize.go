package validation

import (
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes every <...> sequence. Entities are left alone so the
// result is stable when stripped again.
func StripHTML(s string) string {
	return htmlTagRegex.ReplaceAllString(s, "")
}

// StripAndTrim removes tags and surrounding whitespace.
func StripAndTrim(s string) string {
	return strings.TrimSpace(StripHTML(s))
}
