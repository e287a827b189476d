package guardrail

import (
	"regexp"

	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

// Kind names one of the built-in keyword tables.
type Kind string

const (
	KindCrisis  Kind = "crisis"
	KindMedical Kind = "medical"
	KindUnsafe  Kind = "unsafe"
	KindHandoff Kind = "handoff"
)

// Kinds lists the tables in evaluation order.
var Kinds = []Kind{KindCrisis, KindMedical, KindUnsafe, KindHandoff}

// Keyword is one language-tagged term. Terms are stored lower-cased.
type Keyword struct {
	Lang string `json:"lang"`
	Term string `json:"term"`
}

func kw(code string, terms ...string) []Keyword {
	out := make([]Keyword, len(terms))
	for i, t := range terms {
		out[i] = Keyword{Lang: code, Term: t}
	}
	return out
}

func concat(parts ...[]Keyword) []Keyword {
	var out []Keyword
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Injury, emergency, legal-threat and self-harm terms.
var crisisKeywords = concat(
	kw(lang.English,
		"kill myself", "killing myself", "suicide", "suicidal", "self harm", "self-harm",
		"hurt myself", "end my life", "want to die", "overdose", "emergency", "ambulance",
		"chemical burn", "burned my skin", "bleeding", "allergic reaction", "anaphylaxis",
		"can't breathe", "cannot breathe", "hospital", "poisoned", "injured", "injury",
		"lawsuit", "lawyer", "sue you", "legal action", "report you",
	),
	kw(lang.Turkish,
		"intihar", "kendimi öldür", "kendimi öldüreceğim", "ölmek istiyorum", "kendime zarar",
		"acil durum", "ambulans", "yanık", "kanama", "kanıyor", "alerjik reaksiyon", "nefes alamıyorum",
		"hastane", "hastanelik", "zehirlendim", "yaralandım", "acı",
		"avukat", "dava", "mahkeme", "şikayet edeceğim",
	),
	kw(lang.Hungarian,
		"öngyilkos", "öngyilkosság", "megölöm magam", "meg akarok halni", "önsértés",
		"sürgősségi", "mentő", "mentőt", "égési sérülés", "vérzés", "vérzik", "allergiás reakció",
		"nem kapok levegőt", "kórház", "kórházba", "megmérgeztem", "sérülés", "fájdalom",
		"ügyvéd", "beperelem", "feljelentés", "bíróság",
	),
)

var medicalKeywords = concat(
	kw(lang.English,
		"treatment", "diagnosis", "diagnose", "doctor", "dermatologist", "medication",
		"medicine", "prescription", "cure", "disease", "infection", "eczema", "psoriasis",
		"rosacea", "pregnant", "pregnancy", "breastfeeding",
	),
	kw(lang.Turkish,
		"tedavi", "teşhis", "tanı", "doktor", "dermatolog", "ilaç", "reçete", "hastalık",
		"enfeksiyon", "egzama", "sedef", "hamile", "hamilelik", "emzirme",
	),
	kw(lang.Hungarian,
		"kezelés", "diagnózis", "orvos", "bőrgyógyász", "gyógyszer", "recept", "betegség",
		"fertőzés", "ekcéma", "pikkelysömör", "terhes", "terhesség", "szoptatás",
	),
)

// Guarantee and efficacy claims a generated answer must not make.
var unsafeKeywords = concat(
	kw(lang.English,
		"guaranteed results", "guaranteed to", "100% effective", "no side effects",
		"cures", "permanently removes", "works for everyone", "clinically proven to cure",
	),
	kw(lang.Turkish,
		"garantili sonuç", "garanti eder", "%100 etkili", "yan etkisi yok", "kesin sonuç",
		"tedavi eder", "kalıcı olarak yok eder",
	),
	kw(lang.Hungarian,
		"garantált eredmény", "garantáltan", "100%-ban hatásos", "nincs mellékhatása",
		"biztos eredmény", "meggyógyít", "végleg eltünteti",
	),
)

// Handoff phrases are substring matched.
var handoffKeywords = concat(
	kw(lang.English,
		"talk to a human", "speak to a human", "talk to a person", "real person", "human agent",
		"live agent", "customer service", "talk to someone", "speak to someone", "representative",
	),
	kw(lang.Turkish,
		"insanla konuş", "gerçek kişi", "gerçek biri", "müşteri temsilcisi", "yetkiliyle görüş",
		"canlı destek", "biriyle konuşmak",
	),
	kw(lang.Hungarian,
		"emberrel beszél", "élő ügyfélszolgálat", "ügyfélszolgálat", "ügyintéző",
		"valódi személy", "munkatárssal",
	),
)

var tables = map[Kind][]Keyword{
	KindCrisis:  crisisKeywords,
	KindMedical: medicalKeywords,
	KindUnsafe:  unsafeKeywords,
	KindHandoff: handoffKeywords,
}

// Keywords returns a copy of a built-in table, or nil for an unknown kind.
func Keywords(kind Kind) []Keyword {
	t, ok := tables[kind]
	if !ok {
		return nil
	}
	out := make([]Keyword, len(t))
	copy(out, t)
	return out
}

type compiledKeyword struct {
	Keyword
	re *regexp.Regexp
}

var (
	crisisMatchers  = compile(crisisKeywords)
	medicalMatchers = compile(medicalKeywords)
	unsafeMatchers  = compile(unsafeKeywords)
)

// ruleMatchers binds each SystemRules ID to its keyword table.
var ruleMatchers = map[string][]compiledKeyword{
	string(models.ReasonCrisisKeyword): crisisMatchers,
	string(models.ReasonMedicalAdvice): medicalMatchers,
	string(models.ReasonUnsafeContent): unsafeMatchers,
}

func compile(table []Keyword) []compiledKeyword {
	out := make([]compiledKeyword, len(table))
	for i, k := range table {
		out[i] = compiledKeyword{Keyword: k, re: lang.WholeWord(k.Term)}
	}
	return out
}
