package pipeline

import "commerce-answers/internal/lang"

type messages struct {
	noContext       string
	liveUnavailable string

	checkedAt  string // %s UTC timestamp
	inStock    string // %d units
	outOfStock string
	stockUnk   string
}

var localizedMessages = map[string]messages{
	lang.English: {
		noContext:       "I couldn't find relevant information about that in our product details. Could you tell me a bit more, for example which product you mean?",
		liveUnavailable: "I couldn't verify the current price or stock right now. Could you tell me which product and size you mean so I can check again?",
		checkedAt:       "(checked at %s)",
		inStock:         "in stock (%d)",
		outOfStock:      "out of stock",
		stockUnk:        "stock unknown",
	},
	lang.Turkish: {
		noContext:       "Ürün bilgilerimizde bununla ilgili bir bilgi bulamadım. Hangi ürünü kastettiğinizi biraz daha açabilir misiniz?",
		liveUnavailable: "Şu anda güncel fiyatı veya stok durumunu doğrulayamadım. Tekrar kontrol edebilmem için hangi ürün ve boyutu kastettiğinizi yazar mısınız?",
		checkedAt:       "(kontrol zamanı: %s)",
		inStock:         "stokta (%d)",
		outOfStock:      "stokta yok",
		stockUnk:        "stok bilgisi yok",
	},
	lang.Hungarian: {
		noContext:       "Nem találtam erre vonatkozó információt a termékleírásainkban. Pontosítanád, melyik termékre gondolsz?",
		liveUnavailable: "Most nem tudtam ellenőrizni az aktuális árat vagy készletet. Megírnád, melyik termékre és kiszerelésre gondolsz, hogy újra megnézzem?",
		checkedAt:       "(ellenőrizve: %s)",
		inStock:         "készleten (%d)",
		outOfStock:      "nincs készleten",
		stockUnk:        "készletinfó nem elérhető",
	},
}

func messagesFor(code string) messages {
	if m, ok := localizedMessages[code]; ok {
		return m
	}
	return localizedMessages[lang.Default]
}

// NoContextMessage is the localized "nothing relevant found" reply.
func NoContextMessage(code string) string {
	return messagesFor(code).noContext
}

// LiveUnavailableMessage is the localized reply when live price or stock could not be verified.
func LiveUnavailableMessage(code string) string {
	return messagesFor(code).liveUnavailable
}
