// Package lang resolves, detects and lower-cases the fixed set of locales the
// answer flow supports.
package lang

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	English   = "en"
	Turkish   = "tr"
	Hungarian = "hu"

	Default = English
)

// Supported lists the locales in the order templates are authored.
var Supported = []string{English, Turkish, Hungarian}

var tags = map[string]language.Tag{
	English:   language.English,
	Turkish:   language.Turkish,
	Hungarian: language.Hungarian,
}

// IsSupported reports whether code is one of the canonical locale codes.
func IsSupported(code string) bool {
	_, ok := tags[code]
	return ok
}

// Normalize maps a BCP 47-ish code ("tr-TR", "HU", "en_US") onto a canonical
// supported code. Unknown or malformed codes yield "".
func Normalize(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if IsSupported(base.String()) {
		return base.String()
	}
	return ""
}

// OrDefault returns code when supported, otherwise Default.
func OrDefault(code string) string {
	if n := Normalize(code); n != "" {
		return n
	}
	return Default
}

// Lower lower-cases text using the casing rules of code. Turkish needs its own
// caser so that "I" and "İ" fold to "ı" and "i".
func Lower(text, code string) string {
	tag, ok := tags[code]
	if !ok {
		tag = language.Und
	}
	return cases.Lower(tag).String(text)
}

// Name returns the English display name of a locale, used in model prompts.
func Name(code string) string {
	tag, ok := tags[code]
	if !ok {
		return "English"
	}
	return display.English.Tags().Name(tag)
}

var markerRunes = map[string]string{
	Turkish:   "ğışİŞĞç",
	Hungarian: "őűŐŰáéíóú",
}

var markerWords = map[string]map[string]struct{}{
	Turkish: set(
		"bu", "ve", "mi", "mı", "mu", "mü", "ne", "nasıl", "kaç", "ürün", "ürünü", "için", "var", "mı",
		"fiyat", "fiyatı", "stok", "stokta", "kullanılır", "cilt", "içerik", "lütfen", "merhaba",
		"teşekkürler", "nedir", "nerede", "kadar", "hangi", "uygun", "değil", "istiyorum",
	),
	Hungarian: set(
		"az", "és", "hogy", "nem", "van", "mennyi", "hogyan", "termék", "termékben", "ár", "ára",
		"kérem", "köszönöm", "szia", "milyen", "bőr", "használni", "mennyibe", "kerül", "készleten",
		"ez", "egy", "mit", "miért", "szeretnék", "vagy",
	),
}

func set(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

var detector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Turkish, lingua.Hungarian).
		WithMinimumRelativeDistance(0.05).
		Build()
})

// Detect returns the locale of text. The statistical detector decides when it is
// confident; short or mixed text falls back to locale-specific letters and
// function words, and text with no signal at all is treated as English.
func Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return Default
	}
	if l, ok := detector().DetectLanguageOf(text); ok {
		if code := strings.ToLower(l.IsoCode639_1().String()); IsSupported(code) {
			return code
		}
	}
	return detectByMarkers(text)
}

func detectByMarkers(text string) string {
	scores := map[string]int{}
	for code, runes := range markerRunes {
		for _, r := range text {
			if strings.ContainsRune(runes, r) {
				scores[code] += 2
			}
		}
	}

	words := strings.FieldsFunc(cases.Lower(language.Und).String(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for code, vocab := range markerWords {
			if _, ok := vocab[w]; ok {
				scores[code] += 3
			}
		}
	}

	best, bestScore := Default, 0
	for _, code := range []string{Turkish, Hungarian} {
		if scores[code] > bestScore {
			best, bestScore = code, scores[code]
		}
	}
	return best
}

// Detector adapts Detect to interfaces that expect a method.
type Detector struct{}

func (Detector) DetectLanguage(text string) string {
	return Detect(text)
}
