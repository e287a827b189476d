package guardrail

import (
	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

type localized map[string]string

func (l localized) in(code string) string {
	if s, ok := l[code]; ok {
		return s
	}
	return l[lang.Default]
}

var crisisResponse = localized{
	lang.English:   "I'm really sorry you're going through this. If you are in danger or need urgent help, please call your local emergency number (112 in Europe, 911 in the US) right away. I'm also bringing in a member of our team.",
	lang.Turkish:   "Bunu yaşadığınız için çok üzgünüm. Tehlikedeyseniz veya acil yardıma ihtiyacınız varsa lütfen hemen 112'yi arayın. Ekibimizden birini de konuşmaya dahil ediyorum.",
	lang.Hungarian: "Nagyon sajnálom, hogy ezt éled át. Ha veszélyben vagy, vagy sürgős segítségre van szükséged, kérlek azonnal hívd a 112-t. Közben egy kollégánkat is bevonom a beszélgetésbe.",
}

var medicalResponse = localized{
	lang.English:   "I can't give medical advice. For questions about health conditions, treatments or medication, please ask a doctor or pharmacist. I'm happy to help with product details.",
	lang.Turkish:   "Tıbbi tavsiye veremiyorum. Sağlık durumu, tedavi veya ilaçlarla ilgili sorular için lütfen bir doktora ya da eczacıya danışın. Ürün bilgileri konusunda memnuniyetle yardımcı olurum.",
	lang.Hungarian: "Orvosi tanácsot nem tudok adni. Egészségi állapottal, kezeléssel vagy gyógyszerekkel kapcsolatban kérlek, fordulj orvoshoz vagy gyógyszerészhez. A termékinformációkban szívesen segítek.",
}

var unsafeResponse = localized{
	lang.English:   "I can't promise specific results. I can share what the product information says if that helps.",
	lang.Turkish:   "Belirli bir sonucu garanti edemem. İsterseniz ürün bilgilerinde yazanları paylaşabilirim.",
	lang.Hungarian: "Konkrét eredményt nem tudok ígérni. Ha segít, megosztom, mit ír a termékleírás.",
}

var customFallbackResponse = localized{
	lang.English:   "I'm not able to help with that here. Is there anything else about our products I can help with?",
	lang.Turkish:   "Bu konuda burada yardımcı olamıyorum. Ürünlerimizle ilgili başka bir konuda yardımcı olabilir miyim?",
	lang.Hungarian: "Ebben itt nem tudok segíteni. Segíthetek valami másban a termékeinkkel kapcsolatban?",
}

// SafeResponse returns the canned reply for a reason in code.
func SafeResponse(reason models.GuardrailReason, code string) string {
	switch reason {
	case models.ReasonCrisisKeyword:
		return crisisResponse.in(code)
	case models.ReasonMedicalAdvice:
		return medicalResponse.in(code)
	case models.ReasonUnsafeContent:
		return unsafeResponse.in(code)
	default:
		return customFallbackResponse.in(code)
	}
}

var handoffResponse = localized{
	lang.English:   "Of course. I'm passing this conversation to a member of our team, who will reply here shortly.",
	lang.Turkish:   "Elbette. Bu konuşmayı ekibimizden birine aktarıyorum, kısa süre içinde buradan yanıt verecek.",
	lang.Hungarian: "Természetesen. Átadom a beszélgetést egy kollégánknak, aki hamarosan itt válaszol.",
}

// HandoffResponse acknowledges an explicit request for a human in code.
func HandoffResponse(code string) string {
	return handoffResponse.in(code)
}
