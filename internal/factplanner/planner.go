// Package factplanner answers narrow product-fact questions deterministically
// from structured fact snapshots, or declines so the caller can fall through
// to retrieval and generation.
package factplanner

import (
	"fmt"
	"strings"

	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

type ResponseLength string

const (
	LengthShort  ResponseLength = "short"
	LengthMedium ResponseLength = "medium"
	LengthLong   ResponseLength = "long"
)

// Caps returns the list and usage-step caps for a response length.
func (r ResponseLength) Caps() (listCap, stepCap int) {
	switch r {
	case LengthShort:
		return 5, 2
	case LengthLong:
		return 12, 5
	default:
		return 8, 4
	}
}

type Options struct {
	ResponseLength ResponseLength
	// IncludeEvidenceQuote defaults to true when nil.
	IncludeEvidenceQuote *bool
	// MaxEvidenceQuotes defaults to 1 when zero.
	MaxEvidenceQuotes int
}

func (o Options) includeEvidence() bool {
	return o.IncludeEvidenceQuote == nil || *o.IncludeEvidenceQuote
}

func (o Options) maxQuotes() int {
	if o.MaxEvidenceQuotes <= 0 {
		return 1
	}
	return o.MaxEvidenceQuotes
}

type DeclineReason string

const (
	DeclineNoIntent         DeclineReason = "no_intent"
	DeclineNoSnapshot       DeclineReason = "no_snapshot"
	DeclineAmbiguousProduct DeclineReason = "ambiguous_product"
)

// Result is either Planned or NotPlanned.
type Result interface {
	isResult()
}

type Planned struct {
	Answer models.PlannedFactAnswer
}

type NotPlanned struct {
	Reason DeclineReason
}

func (Planned) isResult()    {}
func (NotPlanned) isResult() {}

// Outcome names a result for logs and metrics: the query type or the decline reason.
func Outcome(r Result) string {
	switch v := r.(type) {
	case Planned:
		return string(v.Answer.QueryType)
	case NotPlanned:
		return string(v.Reason)
	default:
		return "unknown"
	}
}

type Planner struct{}

func New() *Planner {
	return &Planner{}
}

// Plan classifies query and renders an answer from the one snapshot it names.
// lang is the reply locale; when empty or unsupported it is detected from query.
func (p *Planner) Plan(query, code string, snapshots []models.ProductFactSnapshot, opts Options) Result {
	code = lang.Normalize(code)
	if code == "" {
		code = lang.Detect(query)
	}
	folded := lang.Lower(query, code)

	queryType, ok := classify(folded)
	if !ok {
		return NotPlanned{Reason: DeclineNoIntent}
	}

	snap, reason := selectSnapshot(folded, code, snapshots)
	if reason != "" {
		return NotPlanned{Reason: reason}
	}

	r := renderer{
		phrases: phrasesFor(code),
		snap:    snap,
		query:   folded,
	}
	r.listCap, r.stepCap = opts.ResponseLength.Caps()

	answer := r.render(queryType)
	answer.text = sentence(answer.text, code)
	if answer.rendered && opts.includeEvidence() {
		quotes := selectEvidence(snap.Evidence, queryType, opts.maxQuotes())
		if len(quotes) > 0 {
			answer.text += r.phrases.sourceSuffix(quotes)
			answer.quotes = quotes
		}
	}

	return Planned{Answer: models.PlannedFactAnswer{
		Answer:             answer.text,
		QueryType:          queryType,
		UsedProductID:      snap.ProductID,
		UsedFactKeys:       answer.keys,
		EvidenceQuotesUsed: answer.quotes,
		Direct:             true,
	}}
}

func selectSnapshot(folded, code string, snapshots []models.ProductFactSnapshot) (models.ProductFactSnapshot, DeclineReason) {
	switch len(snapshots) {
	case 0:
		return models.ProductFactSnapshot{}, DeclineNoSnapshot
	case 1:
		return snapshots[0], ""
	}

	// A name nested in a longer matched name ("Glow Serum" in "Glow Serum Plus")
	// yields to it; any other second match is ambiguous.
	var matched []int
	best := -1
	for i, s := range snapshots {
		name := strings.TrimSpace(s.ProductName)
		if name == "" || !strings.Contains(folded, lang.Lower(name, code)) {
			continue
		}
		matched = append(matched, i)
		if best < 0 || len(name) > len(strings.TrimSpace(snapshots[best].ProductName)) {
			best = i
		}
	}
	if best < 0 {
		return models.ProductFactSnapshot{}, DeclineAmbiguousProduct
	}
	bestName := lang.Lower(strings.TrimSpace(snapshots[best].ProductName), code)
	for _, i := range matched {
		if i == best {
			continue
		}
		name := lang.Lower(strings.TrimSpace(snapshots[i].ProductName), code)
		if name == bestName || !strings.Contains(bestName, name) {
			return models.ProductFactSnapshot{}, DeclineAmbiguousProduct
		}
	}
	return snapshots[best], ""
}

type renderer struct {
	phrases phrases
	snap    models.ProductFactSnapshot
	query   string
	listCap int
	stepCap int
}

type rendered struct {
	text     string
	keys     []string
	quotes   []string
	rendered bool
}

func (r renderer) name() string {
	if n := strings.TrimSpace(r.snap.ProductName); n != "" {
		return n
	}
	if t := strings.TrimSpace(r.snap.Facts.ProductIdentity.Title); t != "" {
		return t
	}
	return r.phrases.thisProduct
}

func (r renderer) noInfo() rendered {
	return rendered{
		text: fmt.Sprintf(r.phrases.noInfo, r.name()),
		keys: []string{},
	}
}

func (r renderer) render(queryType models.QueryType) rendered {
	f := r.snap.Facts
	p := r.phrases

	switch queryType {
	case models.QueryTypeVolume:
		id := f.ProductIdentity
		if id.VolumeValue <= 0 || strings.TrimSpace(id.VolumeUnit) == "" {
			return r.noInfo()
		}
		return rendered{
			text:     fmt.Sprintf(p.volume, r.name(), formatAmount(id.VolumeValue), strings.TrimSpace(id.VolumeUnit)),
			keys:     []string{"volume_value", "volume_unit"},
			rendered: true,
		}

	case models.QueryTypeIngredients:
		return r.listAnswer(p.ingredients, f.Ingredients, "ingredients")

	case models.QueryTypeActiveIngredients:
		return r.listAnswer(p.activeIngredients, f.ActiveIngredients, "active_ingredients")

	case models.QueryTypeSkinType:
		return r.listAnswer(p.skinTypes, f.TargetSkinTypes, "target_skin_types")

	case models.QueryTypeUsage:
		return r.usage()

	case models.QueryTypeWarnings:
		out := r.listAnswer(p.warnings, f.Warnings, "warnings")
		if out.rendered {
			out.text += " " + p.hints[warningMode(r.query)]
		}
		return out
	}
	return r.noInfo()
}

func (r renderer) listAnswer(tmpl string, items []string, key string) rendered {
	if kept, _ := capList(items, r.listCap); len(kept) == 0 {
		return r.noInfo()
	}
	return rendered{
		text:     fmt.Sprintf(tmpl, r.name(), r.phrases.list(items, r.listCap)),
		keys:     []string{key},
		rendered: true,
	}
}

func (r renderer) usage() rendered {
	f := r.snap.Facts
	p := r.phrases

	steps, _ := capList(f.UsageSteps, r.stepCap)
	frequency := strings.TrimSpace(f.Frequency)
	if len(steps) == 0 && frequency == "" {
		return r.noInfo()
	}

	var parts, keys []string
	stepsPart := func(required bool) {
		switch {
		case len(steps) > 0:
			parts = append(parts, fmt.Sprintf(p.steps, numbered(steps)))
			keys = append(keys, "usage_steps")
		case required:
			parts = append(parts, fmt.Sprintf(p.noSteps, r.name()))
		}
	}
	freqPart := func(required bool) {
		switch {
		case frequency != "":
			parts = append(parts, fmt.Sprintf(p.frequency, strings.TrimRight(frequency, ". ")))
			keys = append(keys, "frequency")
		case required:
			parts = append(parts, fmt.Sprintf(p.noFrequency, r.name()))
		}
	}

	// The asked-for field leads and is reported missing explicitly.
	switch usageMode(r.query) {
	case UsageFrequencyFirst:
		freqPart(true)
		stepsPart(false)
	case UsageHowTo:
		stepsPart(true)
		if len(steps) == 0 {
			freqPart(false)
		}
	default:
		stepsPart(false)
		freqPart(false)
	}

	if isOnboardingPrompt(r.query) {
		if warnings, _ := capList(f.Warnings, 2); len(warnings) > 0 {
			parts = append([]string{fmt.Sprintf(p.warningsPrefix, strings.Join(warnings, "; "))}, parts...)
			keys = append(keys, "warnings")
		}
	}

	return rendered{
		text:     strings.Join(parts, " "),
		keys:     keys,
		rendered: true,
	}
}
