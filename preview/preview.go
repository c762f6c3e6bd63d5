// Package preview normalizes message text and produces the plain-text
// snippets shown as a conversation's last-message summary.
package preview

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

const Ellipsis = "…"

var (
	strict     = bluemonday.StrictPolicy()
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize strips any HTML from s and collapses runs of whitespace.
// Message bodies pass through here before being written.
func Normalize(s string) string {
	s = strict.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Snippet renders markdown in s to plain text and truncates it to at
// most max runes, appending an ellipsis when cut.
func Snippet(s string, max int) string {
	rendered := blackfriday.Run([]byte(s))
	plain := Normalize(string(rendered))
	return truncate(plain, max)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := strings.TrimRight(string(runes[:max]), " ")
	return cut + Ellipsis
}
