package lang

import (
	"regexp"
	"strings"
)

// Go's \b only understands ASCII word characters, which breaks on "ı", "ş" or
// "ő". These fragments give the same effect for any Unicode letter or digit.
const (
	leftBoundary  = `(?:^|[^\p{L}\p{N}])`
	rightBoundary = `(?:$|[^\p{L}\p{N}])`
)

// WholeWord compiles a matcher for term as a standalone word or phrase.
func WholeWord(term string) *regexp.Regexp {
	return regexp.MustCompile(leftBoundary + regexp.QuoteMeta(term) + rightBoundary)
}

// Prefixed compiles a case-insensitive matcher for regex fragments that must
// start at a word boundary but may continue into a suffix, so stems like
// "içerik" also hit "içeriği" and "ingredient" hits "ingredients".
func Prefixed(fragments ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + leftBoundary + `(?:` + strings.Join(fragments, "|") + `)`)
}
