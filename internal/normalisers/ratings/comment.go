package ratings

import (
	"html"
	"regexp"
	"strings"
)

// Review comments arrive as HTML fragments with escaped entities.
var (
	commentBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	commentTags   = regexp.MustCompile(`<[^>]+>`)
	commentSpaces = regexp.MustCompile(`[ \t]+`)
	commentBlanks = regexp.MustCompile(`\n{2,}`)
)

// cleanComment strips markup from a review comment and decodes entities.
func cleanComment(s string) string {
	if s == "" {
		return ""
	}

	s = commentBreaks.ReplaceAllString(s, "\n")
	s = commentTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(commentSpaces.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = commentBlanks.ReplaceAllString(s, "\n")

	return strings.TrimSpace(s)
}
