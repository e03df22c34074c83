package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	markupTagRe = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe  = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+`)
)

// CleanText applies NFKC compatibility normalization, replaces markup tags
// with a space, collapses whitespace runs to one space and trims the ends.
// CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	s = markupTagRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Normalize cleans raw user text. Anything that cleans down to nothing is an
// error Result.
func Normalize(input string) Result {
	cleaned := CleanText(input)
	if cleaned == "" {
		return failure(SourceText, "", "No valid input provided.")
	}
	return success(SourceText, cleaned)
}
