package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/models"
)

func rowsWith(sims ...float64) []models.RetrievalRow {
	rows := make([]models.RetrievalRow, len(sims))
	for i, s := range sims {
		rows[i] = models.RetrievalRow{ProductID: string(rune('a' + i)), Similarity: s}
	}
	return rows
}

func TestMeasure(t *testing.T) {
	tests := []struct {
		name    string
		rows    []models.RetrievalRow
		max     float64
		avgTop3 float64
	}{
		{"empty", nil, 0, 0},
		{"single row", rowsWith(0.6), 0.6, 0.6},
		{"two rows average over two", rowsWith(0.5, 0.7), 0.7, 0.6},
		{"top three of five", rowsWith(0.1, 0.9, 0.6, 0.3, 0.9), 0.9, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := measure("en", tt.rows)
			assert.InDelta(t, tt.max, m.Max, 1e-9)
			assert.InDelta(t, tt.avgTop3, m.AvgTop3, 1e-9)
			assert.Equal(t, len(tt.rows), m.Count)
		})
	}
}

func TestNeedsFallback(t *testing.T) {
	weak := EvidenceMetrics{Max: 0.6, AvgTop3: 0.5}

	assert.True(t, needsFallback(weak, 0.75, 0.92, "en", "tr"))
	assert.False(t, needsFallback(weak, 0.75, 0.92, "tr", "tr"), "same language")
	assert.False(t, needsFallback(weak, 0.75, 0.92, "", "tr"), "no default language")
	assert.False(t, needsFallback(EvidenceMetrics{Max: 0.8, AvgTop3: 0.5}, 0.75, 0.92, "en", "tr"), "strong max")
	assert.False(t, needsFallback(EvidenceMetrics{Max: 0.7, AvgTop3: 0.7}, 0.75, 0.92, "en", "tr"), "avg above 0.69")
}

func TestAcceptFallback(t *testing.T) {
	tests := []struct {
		name     string
		primary  float64
		fallback float64
		want     bool
	}{
		{"fallback stronger", 0.5, 0.8, true},
		{"tie goes to fallback", 0.8, 0.8, true},
		{"weak primary accepts weaker fallback", 0.5, 0.4, true},
		{"primary above threshold keeps its evidence", 0.8, 0.7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := acceptFallback(EvidenceMetrics{Max: tt.primary}, EvidenceMetrics{Max: tt.fallback}, 0.75)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankRows(t *testing.T) {
	rows := []models.RetrievalRow{
		{ProductID: "b", Similarity: 0.7},
		{ProductID: "a", Similarity: 0.9},
		{ProductID: "b", Similarity: 0.8},
		{ProductID: "", Similarity: 0.99},
		{ProductID: "c", Similarity: 0.6},
	}

	got := rankRows(rows, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProductID)
	assert.Equal(t, "b", got[1].ProductID)
	assert.Equal(t, 0.8, got[1].Similarity)
}

func TestBuildSnippets_BoundedFanOut(t *testing.T) {
	var inFlight, peak int32
	catalog := &MockCatalog{GetProductLocalizationsFunc: func(ctx context.Context, shopID string, ids []string, lang string) (map[string]models.ProductLocalization, error) {
		n := atomicAdd(&inFlight, 1)
		defer atomicAdd(&inFlight, -1)
		atomicMax(&peak, n)
		time.Sleep(5 * time.Millisecond)
		if ids[0] == "c" {
			return nil, errors.New("timeout")
		}
		return map[string]models.ProductLocalization{
			ids[0]: {ProductID: ids[0], Lang: lang, Title: "Localized " + ids[0], Description: strings.Repeat("é", 50)},
		}, nil
	}}

	cfg := DefaultConfig()
	cfg.LocalizationConcurrency = 2
	cfg.ExcerptChars = 20
	p := New(cfg, Deps{Catalog: catalog, Logger: logger.NewTestLogger(t)})

	rows := rowsWith(0.9, 0.8, 0.7, 0.6, 0.5)
	rows[2].Title = "Indexed c"
	rows[2].Description = "<p>Indexed <em>text</em></p>"

	snippets := p.buildSnippets(context.Background(), "shop-1", "hu", rows)

	require.Len(t, snippets, 5)
	for i, s := range snippets {
		assert.Equal(t, i+1, s.Index)
	}
	assert.Equal(t, "Localized a", snippets[0].Title)
	assert.Equal(t, 20, utf8.RuneCountInString(snippets[0].Excerpt))
	assert.Equal(t, "Indexed c", snippets[2].Title)
	assert.Equal(t, "Indexed text", snippets[2].Excerpt)
	assert.LessOrEqual(t, peak, int32(2))
	assert.EqualValues(t, 5, catalog.calls.Load())
}

func TestFormatQuotes_Bounds(t *testing.T) {
	var quotes []models.LiveProductQuote
	for _, title := range []string{"A", "B", "C", "D"} {
		quotes = append(quotes, models.LiveProductQuote{
			ID:    title,
			Title: title,
			Variants: []models.LiveVariant{
				{Title: "Default Title", Price: "10"},
			},
		})
	}

	got := formatQuotes(quotes, "TRY", "tr", 3, 3, checkedAt)

	assert.Equal(t, "A:\n- 10.00 TRY, stok bilgisi yok\n"+
		"B:\n- 10.00 TRY, stok bilgisi yok\n"+
		"C:\n- 10.00 TRY, stok bilgisi yok\n"+
		"(kontrol zamanı: 2026-10-18 09:30 UTC)", got)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "19.90 EUR", formatPrice("19.9", "EUR"))
	assert.Equal(t, "4990.00", formatPrice("4990", ""))
	assert.Equal(t, "n/a USD", formatPrice("n/a", "USD"))
}

func TestIsPriceOrStockQuestion(t *testing.T) {
	tests := []struct {
		question string
		lang     string
		want     bool
	}{
		{"What's the price?", "en", true},
		{"Is the 50ml one in stock?", "en", true},
		{"How much does it cost?", "en", true},
		{"Bu ürünün FİYATI ne?", "tr", true},
		{"Stokta var mı?", "tr", true},
		{"Mennyibe kerül?", "hu", true},
		{"Mi az ára?", "hu", true},
		{"Van készleten?", "hu", true},
		{"Is it good for oily skin?", "en", false},
		{"Hogyan kell használni?", "hu", false},
		{"Milyen árnyalatok vannak?", "hu", false},
		{"How much is it?", "en", true},
		{"Bu krem ne kadara tutar?", "tr", true},
		{"Bu krem kaça?", "tr", true},
		{"Bu krem ne kadar süre dayanır?", "tr", false},
		{"Günde ne kadar kullanmalıyım?", "tr", false},
		{"How much does a pump dispense?", "en", false},
		{"Is it available in other scents?", "en", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPriceOrStockQuestion(tt.question, tt.lang))
		})
	}
}

func TestTimings(t *testing.T) {
	var tm Timings
	tm.Add(StageEmbedPrimary, 40*time.Millisecond)
	tm.Add(StageSearchPrimary, 10*time.Millisecond)
	tm.Add(StageEmbedPrimary, 5*time.Millisecond)

	assert.Equal(t, map[string]int64{StageEmbedPrimary: 45, StageSearchPrimary: 10}, tm.Millis())
	assert.Equal(t, 55*time.Millisecond, tm.Total())
	assert.Len(t, tm.Entries(), 3)
}
