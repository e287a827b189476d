package api

import (
	"golang.org/x/text/language"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/lang"
)

// userMessages are safe to show an end customer. Details stay in the logs.
var userMessages = map[string]map[string]string{
	string(commonerrors.ErrCodeInvalidInput): {
		lang.English:   "The request is missing something we need. Please check it and try again.",
		lang.Turkish:   "İstekte gerekli bir bilgi eksik. Lütfen kontrol edip tekrar deneyin.",
		lang.Hungarian: "A kérésből hiányzik egy szükséges adat. Kérlek, ellenőrizd és próbáld újra.",
	},
	string(commonerrors.ErrCodeStageTimeout): {
		lang.English:   "This is taking longer than expected. Please try again in a moment.",
		lang.Turkish:   "Bu işlem beklenenden uzun sürüyor. Lütfen birazdan tekrar deneyin.",
		lang.Hungarian: "Ez a vártnál tovább tart. Kérlek, próbáld újra egy kicsit később.",
	},
	"NOT_FOUND": {
		lang.English:   "We couldn't find what you were looking for.",
		lang.Turkish:   "Aradığınızı bulamadık.",
		lang.Hungarian: "Nem találtuk, amit keresel.",
	},
	"UNAVAILABLE": {
		lang.English:   "We can't answer right now. Please try again shortly.",
		lang.Turkish:   "Şu anda yanıt veremiyoruz. Lütfen kısa süre sonra tekrar deneyin.",
		lang.Hungarian: "Most nem tudunk válaszolni. Kérlek, próbáld újra hamarosan.",
	},
}

func userMessage(code, locale string) string {
	msgs, ok := userMessages[code]
	if !ok {
		msgs = userMessages["UNAVAILABLE"]
	}
	if m, ok := msgs[lang.OrDefault(locale)]; ok {
		return m
	}
	return msgs[lang.Default]
}

// acceptLanguage returns the highest-weighted supported locale of an
// Accept-Language header, or "".
func acceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if code := lang.Normalize(tag.String()); code != "" {
			return code
		}
	}
	return ""
}
