package table

import (
	"html"
	"regexp"
	"strings"
)

var markupRe = regexp.MustCompile(`<[^>]*>`)

// CleanText strips embedded markup and HTML entities from a cell value.
// Web exports wrap alleles and IDs in tags (e.g. "<span>A</span>") and pad
// cells with "&nbsp;".
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = markupRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	if strings.IndexByte(s, '&') >= 0 {
		s = html.UnescapeString(s)
		s = strings.ReplaceAll(s, "\u00a0", " ")
	}
	return strings.TrimSpace(s)
}
