// Package sanitize cleans free text (notes, descriptions) before it is stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	blankLineRegex = regexp.MustCompile(`\n{3,}`)
	entityReplacer = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`, "&#39;", "'")
)

// Text strips HTML tags (also ones hidden behind entities), normalizes line
// endings and collapses runs of blank lines.
func Text(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, "\r\n", "\n")
	result = blankLineRegex.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// Line is Text for single-line fields such as names.
func Line(s string) string {
	return strings.Join(strings.Fields(Text(s)), " ")
}

func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}
