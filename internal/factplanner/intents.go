package factplanner

import (
	"regexp"

	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

// Word-final fragment: the match must end at a non-letter.
const end = `(?:$|[^\p{L}])`

type family struct {
	queryType models.QueryType
	pattern   *regexp.Regexp
}

var warningsPattern = lang.Prefixed(
	`warning`, `caution`, `side effect`, `safe`, `irritat`, `eyes?` + end, `precaution`,
	`uyarı`, `yan etki`, `tahriş`, `göz(?:e|ü|ün|de|den|ler\p{L}*)?` + end, `güvenli`, `dikkat`,
	`figyelmeztetés`, `mellékhatás`, `irritáció`, `szem(?:be|ben|re|et|környék\p{L}*)?` + end, `biztonságos`, `óvintézkedés`,
)

// families are tried in order; the first hit classifies the question.
var families = []family{
	{models.QueryTypeVolume, lang.Prefixed(
		`how (?:many|much) ml`, `volume`, `size`, `how big`, `capacity`, `ml` + end, `\d+\s*ml` + end,
		`kaç ml`, `kaç mililitre`, `kaç gram`, `hacm`, `hacim`, `boyut`,
		`hány ml`, `mennyi ml`, `térfogat`, `kiszerelés`, `mekkora`,
	)},
	{models.QueryTypeActiveIngredients, lang.Prefixed(
		`active ingredient`, `actives?` + end, `key ingredient`,
		`etken madde`, `aktif (?:içerik|bileşen|madde)`,
		`hatóanyag`, `aktív összetevő`,
	)},
	{models.QueryTypeIngredients, lang.Prefixed(
		`ingredient`, `inci` + end, `contain`, `what(?:'s| is) in`, `made of`,
		`içerik`, `içindekiler`, `bileşen`, `içinde ne var`,
		`összetevő`, `összetétel`, `tartalmaz`, `mi van benne`,
	)},
	{models.QueryTypeUsage, lang.Prefixed(
		`how (?:do i|to|should i|can i) (?:use|apply)`, `usage`, `apply`, `how often`, `routine`, `directions`,
		`nasıl kullan`, `kullanım`, `ne sıklıkla`, `kaç kez`, `günde kaç`, `nasıl uygula`,
		`hogyan (?:kell )?használ`, `használat`, `milyen gyakran`, `hányszor`,
	)},
	{models.QueryTypeWarnings, warningsPattern},
	{models.QueryTypeSkinType, lang.Prefixed(
		`skin type`, `oily`, `dry skin`, `sensitive skin`, `combination skin`, `suitable for`,
		`cilt tip`, `yağlı`, `kuru cilt`, `hassas cilt`, `karma cilt`, `uygun mu`,
		`bőrtípus`, `zsíros`, `száraz bőr`, `érzékeny bőr`, `kombinált bőr`, `alkalmas`,
	)},
}

func classify(query string) (models.QueryType, bool) {
	for _, f := range families {
		if f.pattern.MatchString(query) {
			return f.queryType, true
		}
	}
	return "", false
}

// UsageMode refines a usage question.
type UsageMode string

const (
	UsageFrequencyFirst UsageMode = "frequency_first"
	UsageHowTo          UsageMode = "how_to"
	UsageGeneral        UsageMode = "general"
)

// WarningMode picks the closing safety hint of a warnings answer.
type WarningMode string

const (
	WarningEye        WarningMode = "eye"
	WarningIrritation WarningMode = "irritation"
	WarningGeneral    WarningMode = "general"
)

var (
	frequencyCue = lang.Prefixed(
		`how often`, `how many times`, `every day`, `daily`, `frequency`, `per day`, `per week`,
		`ne sıklıkla`, `kaç kez`, `günde kaç`, `her gün`, `sıklık`, `haftada`,
		`milyen gyakran`, `hányszor`, `naponta`, `gyakoriság`, `hetente`,
	)
	howToCue = lang.Prefixed(
		`how (?:do i|to|should i|can i)`, `steps?` + end, `apply`, `directions`,
		`nasıl`, `adım`, `uygula`,
		`hogyan`, `lépés`, `felvi`,
	)
	eyeCue = lang.Prefixed(
		`eyes?` + end, `eyelid`,
		`göz(?:e|ü|ün|de|den|ler\p{L}*)?` + end,
		`szem(?:be|ben|re|et|környék\p{L}*)?` + end,
	)
	irritationCue = lang.Prefixed(
		`irritat`, `sting`, `burn`, `redness`, `rash`, `itch`,
		`tahriş`, `kızarıklık`, `yanma`, `kaşıntı`,
		`irritáció`, `bőrpír`, `csíp`, `viszket`,
	)
)

func usageMode(query string) UsageMode {
	switch {
	case frequencyCue.MatchString(query):
		return UsageFrequencyFirst
	case howToCue.MatchString(query):
		return UsageHowTo
	default:
		return UsageGeneral
	}
}

func warningMode(query string) WarningMode {
	switch {
	case eyeCue.MatchString(query):
		return WarningEye
	case irritationCue.MatchString(query):
		return WarningIrritation
	default:
		return WarningGeneral
	}
}

// isOnboardingPrompt matches the combined "usage steps, frequency and warnings" question.
func isOnboardingPrompt(query string) bool {
	return frequencyCue.MatchString(query) && warningsPattern.MatchString(query)
}
