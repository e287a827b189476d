// Package guardrail classifies inbound and outbound text as safe or unsafe and
// decides between blocking and handing the conversation to a human.
package guardrail

import (
	"strings"

	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

// SystemRules are the built-in checks in evaluation order. AppliesTo scopes a
// rule by direction and ActionEscalate marks it as requiring a human.
var SystemRules = []models.GuardrailRule{
	{
		ID:          "crisis_keyword",
		Name:        map[string]string{lang.English: "Crisis signal", lang.Turkish: "Kriz sinyali", lang.Hungarian: "Krízisjelzés"},
		Description: map[string]string{lang.English: "Self-harm, injury, emergency or legal-threat language", lang.Turkish: "Kendine zarar, yaralanma, acil durum veya hukuki tehdit ifadeleri", lang.Hungarian: "Önsértésre, sérülésre, vészhelyzetre vagy jogi fenyegetésre utaló kifejezések"},
		AppliesTo:   models.DirectionBoth,
		Action:      models.ActionEscalate,
	},
	{
		ID:          "medical_advice",
		Name:        map[string]string{lang.English: "Medical advice", lang.Turkish: "Tıbbi tavsiye", lang.Hungarian: "Orvosi tanács"},
		Description: map[string]string{lang.English: "Diagnosis, treatment or medication topics", lang.Turkish: "Teşhis, tedavi veya ilaç konuları", lang.Hungarian: "Diagnózis, kezelés vagy gyógyszer témák"},
		AppliesTo:   models.DirectionBoth,
		Action:      models.ActionBlock,
	},
	{
		ID:          "unsafe_content",
		Name:        map[string]string{lang.English: "Unsupported claims", lang.Turkish: "Desteksiz iddialar", lang.Hungarian: "Megalapozatlan állítások"},
		Description: map[string]string{lang.English: "Guarantee or efficacy claims in generated answers", lang.Turkish: "Üretilen yanıtlarda garanti veya etkinlik iddiaları", lang.Hungarian: "Garancia- vagy hatékonysági ígéretek a generált válaszokban"},
		AppliesTo:   models.DirectionAIResponse,
		Action:      models.ActionBlock,
	},
}

// CheckOptions carries the reply-language override and the merchant's rules.
type CheckOptions struct {
	Lang        string
	CustomRules []models.CustomGuardrail
}

// Engine evaluates system and merchant rules. It holds no mutable state.
type Engine struct {
	detect func(string) string
}

func NewEngine() *Engine {
	return &Engine{detect: lang.Detect}
}

// Check never fails. System rules run before custom rules and the first match
// decides the result.
func (e *Engine) Check(text string, direction models.Direction, opts CheckOptions) models.GuardrailResult {
	detected := e.detect(text)
	replyLang := lang.Normalize(opts.Lang)
	if replyLang == "" {
		replyLang = detected
	}

	variants := lowerVariants(text, detected)

	for _, rule := range SystemRules {
		if !rule.AppliesTo.Matches(direction) {
			continue
		}
		if term, ok := matchAny(ruleMatchers[rule.ID], variants); ok {
			reason := models.GuardrailReason(rule.ID)
			return unsafe(reason, rule.Action == models.ActionEscalate, SafeResponse(reason, replyLang), term, replyLang)
		}
	}

	for _, rule := range opts.CustomRules {
		if !rule.AppliesTo.Matches(direction) {
			continue
		}
		term, ok := matchCustom(rule, variants)
		if !ok {
			continue
		}
		response := strings.TrimSpace(rule.SuggestedResponse)
		if response == "" {
			response = SafeResponse(models.ReasonCustom, replyLang)
		}
		res := unsafe(models.ReasonCustom, rule.Action == models.ActionEscalate, response, term, replyLang)
		res.CustomReason = rule.Name
		return res
	}

	return models.GuardrailResult{Safe: true, Lang: replyLang}
}

// DetectHandoff reports an explicit request for a human. It is independent of safety.
func (e *Engine) DetectHandoff(text string) bool {
	variants := lowerVariants(text, e.detect(text))
	for _, k := range handoffKeywords {
		for _, v := range variants {
			if strings.Contains(v.text, k.Term) {
				return true
			}
		}
	}
	return false
}

func unsafe(reason models.GuardrailReason, requiresHuman bool, response, term, replyLang string) models.GuardrailResult {
	return models.GuardrailResult{
		Safe:              false,
		Reason:            reason,
		RequiresHuman:     requiresHuman,
		SuggestedResponse: response,
		MatchedTerm:       term,
		Lang:              replyLang,
	}
}

type folded struct {
	lang string
	text string
}

// lowerVariants folds text under the detected locale first, then the others.
// Detection can miss on short text, and Turkish dotted/dotless I folds
// differently from every other locale.
func lowerVariants(text, detected string) []folded {
	out := []folded{{lang: detected, text: lang.Lower(text, detected)}}
	for _, code := range lang.Supported {
		if code == detected {
			continue
		}
		v := lang.Lower(text, code)
		dup := false
		for _, seen := range out {
			if seen.text == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, folded{lang: code, text: v})
		}
	}
	return out
}

func matchAny(table []compiledKeyword, variants []folded) (string, bool) {
	for _, k := range table {
		for _, v := range variants {
			if k.re.MatchString(v.text) {
				return k.Term, true
			}
		}
	}
	return "", false
}

func matchCustom(rule models.CustomGuardrail, variants []folded) (string, bool) {
	values := rule.Value
	if rule.MatchType == models.MatchPhrase && len(values) > 1 {
		values = values[:1]
	}
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, v := range variants {
			if strings.Contains(v.text, lang.Lower(raw, v.lang)) {
				return raw, true
			}
		}
	}
	return "", false
}
