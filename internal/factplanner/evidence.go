package factplanner

import (
	"fmt"
	"regexp"
	"strings"

	"commerce-answers/internal/common/textutil"
	"commerce-answers/internal/models"
)

const maxQuoteRunes = 180

type keyMatcher struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

func (k keyMatcher) matches(key string) bool {
	if !k.include.MatchString(key) {
		return false
	}
	return k.exclude == nil || !k.exclude.MatchString(key)
}

var evidenceKeys = map[models.QueryType]keyMatcher{
	models.QueryTypeVolume:            {include: regexp.MustCompile(`(?i)volume|size|net_?content|(^|[._])ml$`)},
	models.QueryTypeActiveIngredients: {include: regexp.MustCompile(`(?i)active`)},
	models.QueryTypeIngredients:       {include: regexp.MustCompile(`(?i)ingredient|inci|composition`), exclude: regexp.MustCompile(`(?i)active`)},
	models.QueryTypeUsage:             {include: regexp.MustCompile(`(?i)usage|how_?to|direction|frequency|apply`)},
	models.QueryTypeWarnings:          {include: regexp.MustCompile(`(?i)warning|caution|precaution|safety`)},
	models.QueryTypeSkinType:          {include: regexp.MustCompile(`(?i)skin`)},
}

// selectEvidence returns up to max truncated quotes whose key belongs to queryType.
func selectEvidence(evidence []models.Evidence, queryType models.QueryType, max int) []string {
	matcher, ok := evidenceKeys[queryType]
	if !ok || max <= 0 {
		return nil
	}
	var quotes []string
	for _, ev := range evidence {
		if len(quotes) == max {
			break
		}
		q := textutil.CollapseSpace(ev.Quote)
		if q == "" || !matcher.matches(ev.FactKey) {
			continue
		}
		quotes = append(quotes, textutil.Truncate(q, maxQuoteRunes))
	}
	return quotes
}

func (p phrases) sourceSuffix(quotes []string) string {
	if len(quotes) == 0 {
		return ""
	}
	wrapped := make([]string, len(quotes))
	for i, q := range quotes {
		wrapped[i] = `"` + q + `"`
	}
	return " " + fmt.Sprintf(p.sourceNote, strings.Join(wrapped, " / "))
}
