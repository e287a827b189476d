package factplanner

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"commerce-answers/internal/lang"
)

// phrases holds one locale's wording. Every locale carries the same information.
type phrases struct {
	thisProduct       string
	noInfo            string // %s product
	volume            string // %s product, %s amount, %s unit
	ingredients       string // %s product, %s list
	activeIngredients string
	skinTypes         string
	more              string // %d hidden items
	frequency         string // %s frequency
	noFrequency       string // %s product
	noSteps           string // %s product
	steps             string // %s numbered steps
	warnings          string // %s product, %s list
	warningsPrefix    string // %s list
	sourceNote        string // %s quotes
	hints             map[WarningMode]string
}

var locales = map[string]phrases{
	lang.English: {
		thisProduct:       "this product",
		noInfo:            "I don't have that information for %s. Please check the product packaging.",
		volume:            "%s contains %s %s.",
		ingredients:       "Ingredients of %s: %s.",
		activeIngredients: "Active ingredients in %s: %s.",
		skinTypes:         "%s is suitable for these skin types: %s.",
		more:              " (and %d more)",
		frequency:         "Use it %s.",
		noFrequency:       "I don't have information on how often to use %s.",
		noSteps:           "I don't have step-by-step directions for %s.",
		steps:             "How to use: %s",
		warnings:          "Warnings for %s: %s.",
		warningsPrefix:    "Before you start: %s.",
		sourceNote:        "Source: %s",
		hints: map[WarningMode]string{
			WarningEye:        "If it gets into your eyes, rinse thoroughly with water.",
			WarningIrritation: "If irritation occurs, stop using it.",
			WarningGeneral:    "Always read the label before use.",
		},
	},
	lang.Turkish: {
		thisProduct:       "bu ürün",
		noInfo:            "%s için bu bilgiye sahip değilim. Lütfen ürün ambalajını kontrol edin.",
		volume:            "%s %s %s içerir.",
		ingredients:       "%s içeriği: %s.",
		activeIngredients: "%s etken maddeleri: %s.",
		skinTypes:         "%s şu cilt tipleri için uygundur: %s.",
		more:              " (ve %d tane daha)",
		frequency:         "Kullanım sıklığı: %s.",
		noFrequency:       "%s için kullanım sıklığı bilgisine sahip değilim.",
		noSteps:           "%s için adım adım kullanım bilgisine sahip değilim.",
		steps:             "Nasıl kullanılır: %s",
		warnings:          "%s için uyarılar: %s.",
		warningsPrefix:    "Başlamadan önce: %s.",
		sourceNote:        "Kaynak: %s",
		hints: map[WarningMode]string{
			WarningEye:        "Göze kaçarsa bol suyla durulayın.",
			WarningIrritation: "Tahriş olursa kullanmayı bırakın.",
			WarningGeneral:    "Kullanmadan önce etiketi okuyun.",
		},
	},
	lang.Hungarian: {
		thisProduct:       "ez a termék",
		noInfo:            "Erről nincs információm (%s). Kérlek, nézd meg a termék csomagolását.",
		volume:            "%s kiszerelése %s %s.",
		ingredients:       "%s összetevői: %s.",
		activeIngredients: "%s hatóanyagai: %s.",
		skinTypes:         "%s a következő bőrtípusokra ajánlott: %s.",
		more:              " (és még %d)",
		frequency:         "Használat gyakorisága: %s.",
		noFrequency:       "Nincs információm arról, milyen gyakran kell használni (%s).",
		noSteps:           "Nincs lépésenkénti használati útmutatóm (%s).",
		steps:             "Használat: %s",
		warnings:          "Figyelmeztetések (%s): %s.",
		warningsPrefix:    "Mielőtt elkezded: %s.",
		sourceNote:        "Forrás: %s",
		hints: map[WarningMode]string{
			WarningEye:        "Ha a szemedbe kerül, alaposan öblítsd ki vízzel.",
			WarningIrritation: "Irritáció esetén hagyd abba a használatát.",
			WarningGeneral:    "Használat előtt olvasd el a címkét.",
		},
	},
}

func phrasesFor(code string) phrases {
	if p, ok := locales[code]; ok {
		return p
	}
	return locales[lang.Default]
}

// capList returns at most n items and the number left out.
func capList(items []string, n int) ([]string, int) {
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			clean = append(clean, it)
		}
	}
	if len(clean) <= n {
		return clean, 0
	}
	return clean[:n], len(clean) - n
}

func (p phrases) list(items []string, n int) string {
	kept, hidden := capList(items, n)
	out := strings.Join(kept, ", ")
	if hidden > 0 {
		out += fmt.Sprintf(p.more, hidden)
	}
	return out
}

func numbered(steps []string) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("%d) %s", i+1, strings.TrimRight(s, ". "))
	}
	return strings.Join(parts, " ") + "."
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sentence upper-cases the first letter, so a fallback name like "this product"
// can open an answer.
func sentence(s, code string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	upper := unicode.ToUpper(r)
	if code == lang.Turkish {
		upper = unicode.TurkishCase.ToUpper(r)
	}
	return string(upper) + s[size:]
}
