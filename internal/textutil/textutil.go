// Package textutil normalizes raw feed and page text before any downstream
// logic touches it.
package textutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	prefixRe = regexp.MustCompile(`(?i)^(REPORT|NEWS|URGENT|BREAKING|UPDATE)\s*:\s*`)
)

// Normalize strips markup tags and HTML entities, collapses runs of
// whitespace to single spaces and trims. Normalizing already-clean text is a
// no-op.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s := tagRe.ReplaceAllString(raw, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// CleanTitle normalizes a headline and drops wire-style prefixes so titles
// from different sources compare well.
func CleanTitle(title string) string {
	return strings.TrimSpace(prefixRe.ReplaceAllString(Normalize(title), ""))
}

// Truncate caps s at max bytes, preferring to cut at a sentence end when one
// exists reasonably deep into the text.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, ". "); idx > max/2 {
		return cut[:idx+1]
	}
	return cut
}
