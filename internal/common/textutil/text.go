// Package textutil holds small text helpers shared by the planner and the pipeline.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
// Input that fails to parse is returned with whitespace collapsed only.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}
	doc.Find("script, style").Remove()
	return CollapseSpace(doc.Text())
}

func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max runes, ending with "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:max-3]), " ") + "..."
}
