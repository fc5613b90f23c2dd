package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes <think>...</think> reasoning blocks that chain-of-thought
// models embed in their output, and trims surrounding whitespace.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(text, ""))
}

// ExtractTitle returns the first "# " heading in markdown content.
// Falls back to the filename stem, then "Untitled".
func ExtractTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "# ") {
			return strings.TrimSpace(stripped[2:])
		}
	}
	if filename != "" {
		stem := filename
		if idx := strings.LastIndex(filename, "."); idx > 0 {
			stem = filename[:idx]
		}
		if stem != "" {
			return stem
		}
	}
	return "Untitled"
}

var (
	nonSlugRe    = regexp.MustCompile(`[^a-z0-9]+`)
	multiDashRe  = regexp.MustCompile(`-+`)
	maxSlugChars = 80
)

// SanitizeFilename converts a human-readable name into a safe filename slug.
func SanitizeFilename(name string) string {
	// Drop non-ASCII runes, diacritics included
	var b strings.Builder
	for _, r := range name {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	s := strings.ToLower(strings.TrimSpace(b.String()))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = strings.Trim(multiDashRe.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "untitled"
	}
	if len(s) > maxSlugChars {
		s = s[:maxSlugChars]
	}
	return s
}

var subtitleSeps = []string{":", " - ", " — ", " – "}

// PickSubtitle returns the part of a title after a colon/dash separator,
// or the title itself when no separator is present.
func PickSubtitle(title string) string {
	for _, sep := range subtitleSeps {
		if idx := strings.Index(title, sep); idx >= 0 {
			after := strings.TrimSpace(title[idx+len(sep):])
			if after != "" {
				return after
			}
		}
	}
	return title
}

// Truncate shortens s to at most maxLen bytes, appending an ellipsis marker.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// IsPlausibleTitleLine reports whether a line from a document's first page
// looks like a human-written title rather than a page number or artifact.
func IsPlausibleTitleLine(line string) bool {
	candidate := strings.TrimSpace(line)
	if len(candidate) < 4 || len(candidate) > 120 {
		return false
	}
	for _, r := range candidate {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
