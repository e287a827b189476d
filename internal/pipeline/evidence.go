package pipeline

import (
	"sort"

	"commerce-answers/internal/models"
)

// EvidenceMetrics summarizes how well a retrieval round matched the question.
type EvidenceMetrics struct {
	Lang    string  `json:"lang"`
	Count   int     `json:"count"`
	Max     float64 `json:"max"`
	AvgTop3 float64 `json:"avgTop3"`
}

func measure(lang string, rows []models.RetrievalRow) EvidenceMetrics {
	m := EvidenceMetrics{Lang: lang, Count: len(rows)}
	if len(rows) == 0 {
		return m
	}

	sims := make([]float64, len(rows))
	for i, r := range rows {
		sims[i] = r.Similarity
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))

	m.Max = sims[0]
	n := len(sims)
	if n > 3 {
		n = 3
	}
	var sum float64
	for _, s := range sims[:n] {
		sum += s
	}
	m.AvgTop3 = sum / float64(n)
	return m
}

// needsFallback reports whether primary evidence is weak enough to retry in
// the shop's source language.
func needsFallback(primary EvidenceMetrics, minSimilarity, factor float64, defaultLang, userLang string) bool {
	return primary.Max < minSimilarity &&
		primary.AvgTop3 < minSimilarity*factor &&
		defaultLang != "" &&
		defaultLang != userLang
}

// acceptFallback decides whether the fallback round replaces the primary one.
// Ties go to the fallback.
func acceptFallback(primary, fallback EvidenceMetrics, minSimilarity float64) bool {
	return fallback.Max >= primary.Max || primary.Max < minSimilarity
}
