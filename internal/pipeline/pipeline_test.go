package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	embedder   *MockEmbedder
	searcher   *MockSearcher
	translator *MockTranslator
	settings   *MockSettingsStore
	catalog    *MockCatalog
	directory  *MockDirectory
	live       *MockLiveCommerce
	generator  *MockGenerator
	sink       *MockSink
	log        logger.Logger
	config     Config
	rows       map[string][]models.RetrievalRow
	searched   []string
}

var checkedAt = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		config: DefaultConfig(),
		rows:   map[string][]models.RetrievalRow{},
		sink:   &MockSink{},
	}
	f.embedder = &MockEmbedder{EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2, 0.3}, nil
	}}
	f.searcher = &MockSearcher{SearchByLanguageFunc: func(ctx context.Context, shopID, lang string, emb []float32, n int) ([]models.RetrievalRow, error) {
		f.searched = append(f.searched, lang)
		return f.rows[lang], nil
	}}
	f.translator = &MockTranslator{TranslateTextFunc: func(ctx context.Context, text, from, to string) (string, error) {
		return "[" + to + "] " + text, nil
	}}
	f.settings = &MockSettingsStore{GetOrCreateShopSettingsFunc: func(ctx context.Context, shopID, seed string) (*models.ShopSettings, error) {
		return &models.ShopSettings{ShopID: shopID, DefaultSourceLang: "en"}, nil
	}}
	f.catalog = &MockCatalog{GetProductLocalizationsFunc: func(ctx context.Context, shopID string, ids []string, lang string) (map[string]models.ProductLocalization, error) {
		return map[string]models.ProductLocalization{}, nil
	}}
	f.directory = &MockDirectory{
		GetShopCredentialsFunc: func(ctx context.Context, shopID string) (*models.ShopCredentials, error) {
			return nil, nil
		},
		GetExternalIDsFunc: func(ctx context.Context, shopID string, ids []string) (map[string]string, error) {
			return map[string]string{}, nil
		},
	}
	f.live = &MockLiveCommerce{FetchLiveProductQuotesFunc: func(ctx context.Context, domain, token string, ids []string) ([]models.LiveProductQuote, error) {
		return nil, errors.New("unexpected live fetch")
	}}
	f.generator = &MockGenerator{GenerateTextFunc: func(ctx context.Context, system, user, model string, temp float32, max int) (string, error) {
		return "Glow Serum brightens dull skin [1].", nil
	}}
	return f
}

func (f *fixture) build(t *testing.T) *Pipeline {
	log := f.log
	if log == nil {
		log = logger.NewTestLogger(t)
	}
	return New(f.config, Deps{
		Embedder:  f.embedder,
		Searcher:  f.searcher,
		Translate: f.translator,
		Settings:  f.settings,
		Catalog:   f.catalog,
		Directory: f.directory,
		Live:      f.live,
		Generator: f.generator,
		Sink:      f.sink,
		Logger:    log,
		Clock:     func() time.Time { return checkedAt },
	})
}

func TestAnswer_PriceWithoutCredentials(t *testing.T) {
	f := newFixture()
	f.rows["en"] = []models.RetrievalRow{
		{ProductID: "p1", Similarity: 0.91, Lang: "en", Title: "Glow Serum", Description: "A serum. Price: 19.99 EUR"},
	}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "What's the price?"})

	require.NoError(t, err)
	assert.Equal(t, LiveUnavailableMessage("en"), resp.Answer)
	assert.NotContains(t, resp.Answer, "19.99")
	assert.Equal(t, BranchLiveQuote, diag.Branch)
	assert.Equal(t, "no_credentials", diag.LiveQuoteOutcome)
	assert.Empty(t, resp.CitedProducts)
	assert.NotNil(t, resp.CitedProducts)
	assert.Zero(t, f.generator.calls)
}

func TestAnswer_EmptyContextSkipsGeneration(t *testing.T) {
	f := newFixture()

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Tell me about your brand story", UserLang: "en"})

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage("en"), resp.Answer)
	assert.Equal(t, BranchNoContext, diag.Branch)
	assert.Zero(t, f.generator.calls)
	assert.False(t, resp.UsedFallback)
	assert.Nil(t, resp.FallbackLang)
}

func TestAnswer_Generates(t *testing.T) {
	f := newFixture()
	f.rows["en"] = []models.RetrievalRow{
		{ProductID: "p2", Similarity: 0.85, Lang: "en", Title: "Night Cream", Description: "Rich cream."},
		{ProductID: "p1", Similarity: 0.90, Lang: "en", Title: "Glow Serum", Description: "Indexed text."},
		{ProductID: "p1", Similarity: 0.80, Lang: "en", Title: "Glow Serum", Chunk: "Second chunk."},
	}
	f.catalog.GetProductLocalizationsFunc = func(ctx context.Context, shopID string, ids []string, lang string) (map[string]models.ProductLocalization, error) {
		if ids[0] == "p1" {
			return map[string]models.ProductLocalization{
				"p1": {ProductID: "p1", Lang: lang, Title: "Glow Serum", Description: "<p>Brightening <b>vitamin C</b> serum.</p><script>x()</script>"},
			}, nil
		}
		return nil, errors.New("catalog down")
	}

	var system, user string
	f.generator.GenerateTextFunc = func(ctx context.Context, s, u, model string, temp float32, max int) (string, error) {
		system, user = s, u
		assert.Equal(t, "gemini-2.5-flash", model)
		assert.Equal(t, float32(0.2), temp)
		assert.Equal(t, 600, max)
		return "  Glow Serum brightens dull skin [1].  ", nil
	}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is the serum good for dull skin?", UserLang: "en-GB"})

	require.NoError(t, err)
	assert.Equal(t, "Glow Serum brightens dull skin [1].", resp.Answer)
	assert.Equal(t, "en", resp.LangDetected)
	assert.Equal(t, []string{"p1", "p2"}, resp.CitedProducts)
	assert.Equal(t, BranchGenerate, diag.Branch)

	assert.Contains(t, system, "Answer in English.")
	assert.Contains(t, user, "[1] Glow Serum (similarity 0.90, lang en)\nBrightening vitamin C serum.")
	assert.Contains(t, user, "[2] Night Cream (similarity 0.85, lang en)\nRich cream.")
	assert.True(t, strings.HasSuffix(user, "Question: Is the serum good for dull skin?"))

	require.Len(t, f.sink.records, 1)
	assert.Equal(t, BranchGenerate, f.sink.records[0].Branch)
	assert.Contains(t, f.sink.records[0].Timings, StageGenerate)
}

func TestAnswer_FallbackRoundTrip(t *testing.T) {
	f := newFixture()
	f.rows["tr"] = []models.RetrievalRow{{ProductID: "p9", Similarity: 0.41, Lang: "tr", Title: "Eski Krem"}}
	f.rows["en"] = []models.RetrievalRow{{ProductID: "p1", Similarity: 0.88, Lang: "en", Title: "Glow Serum", Description: "Brightening serum."}}

	const (
		question   = "Bu serum donuk cilt için iyi mi?"
		questionEN = "Is this serum good for dull skin?"
		answerEN   = "Yes, Glow Serum brightens dull and tired looking skin [1]."
		answerTR   = "Evet, Glow Serum donuk ve yorgun görünen cilt için çok iyidir [1]."
	)
	translations := map[string]string{
		"tr>en " + question: questionEN,
		"en>tr " + answerEN: answerTR,
	}
	f.translator.TranslateTextFunc = func(ctx context.Context, text, from, to string) (string, error) {
		if out, ok := translations[from+">"+to+" "+text]; ok {
			return out, nil
		}
		return "", fmt.Errorf("no translation for %s>%s %q", from, to, text)
	}

	var prompted string
	f.generator.GenerateTextFunc = func(ctx context.Context, s, u, model string, temp float32, max int) (string, error) {
		prompted = s + "\n" + u
		return answerEN, nil
	}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: question, UserLang: "tr"})

	require.NoError(t, err)
	assert.Equal(t, answerTR, resp.Answer)
	assert.Equal(t, "tr", lang.Detect(resp.Answer), "answer must come back in the user's language")
	assert.True(t, resp.UsedFallback)
	require.NotNil(t, resp.FallbackLang)
	assert.Equal(t, "en", *resp.FallbackLang)
	assert.Equal(t, "tr", resp.LangDetected)
	assert.Equal(t, []string{"p1"}, resp.CitedProducts)
	assert.NotContains(t, resp.CitedProducts, "p9")

	assert.Equal(t, []string{"tr", "en"}, f.searched)
	assert.Contains(t, prompted, "Answer in English.")
	assert.Contains(t, prompted, "Question: "+questionEN)

	assert.True(t, diag.BackTranslated)
	assert.Equal(t, "en", diag.EffectiveLang)
	require.NotNil(t, diag.Fallback)
	assert.Equal(t, 0.88, diag.Fallback.Max)

	var stages []string
	for _, e := range diag.Timings.Entries() {
		stages = append(stages, e.Stage)
	}
	want := []string{
		StageDetect, StageSettings, StageEmbedPrimary, StageSearchPrimary,
		StageTranslateQuestion, StageEmbedFallback, StageSearchFallback,
		StageContext, StageGenerate, StageBackTranslate,
	}
	if diff := cmp.Diff(want, stages); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswer_NoFallbackWhenShopSpeaksUserLanguage(t *testing.T) {
	f := newFixture()
	f.rows["en"] = []models.RetrievalRow{{ProductID: "p1", Similarity: 0.3, Lang: "en", Title: "Glow Serum"}}

	resp, _, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?", UserLang: "en"})

	require.NoError(t, err)
	assert.False(t, resp.UsedFallback)
	assert.Equal(t, []string{"en"}, f.searched)
}

func TestAnswer_LiveQuote(t *testing.T) {
	f := newFixture()
	f.rows["en"] = []models.RetrievalRow{
		{ProductID: "p1", Similarity: 0.9, Lang: "en", Title: "Glow Serum"},
		{ProductID: "p2", Similarity: 0.8, Lang: "en", Title: "Night Cream"},
	}
	f.directory.GetShopCredentialsFunc = func(ctx context.Context, shopID string) (*models.ShopCredentials, error) {
		return &models.ShopCredentials{ShopDomain: "glow.myshopify.com", AccessToken: "shpat_x", CurrencyCode: "EUR"}, nil
	}
	f.directory.GetExternalIDsFunc = func(ctx context.Context, shopID string, ids []string) (map[string]string, error) {
		assert.Equal(t, []string{"p1", "p2"}, ids)
		return map[string]string{"p1": "gid://shopify/Product/111", "p2": "gid://shopify/Product/222"}, nil
	}
	twelve, zero := 12, 0
	f.live.FetchLiveProductQuotesFunc = func(ctx context.Context, domain, token string, ids []string) ([]models.LiveProductQuote, error) {
		assert.Equal(t, "glow.myshopify.com", domain)
		assert.Equal(t, []string{"gid://shopify/Product/111", "gid://shopify/Product/222"}, ids)
		return []models.LiveProductQuote{{
			ID:    "gid://shopify/Product/111",
			Title: "Glow Serum",
			Variants: []models.LiveVariant{
				{Title: "30 ml", Price: "24.9", InventoryQuantity: &twelve},
				{Title: "50 ml", Price: "34", InventoryQuantity: &zero},
				{Title: "100 ml", Price: "55.5"},
				{Title: "200 ml", Price: "90"},
			},
		}}, nil
	}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "How much does the Glow Serum cost?", UserLang: "en"})

	require.NoError(t, err)
	want := "Glow Serum:\n" +
		"- 30 ml: 24.90 EUR, in stock (12)\n" +
		"- 50 ml: 34.00 EUR, out of stock\n" +
		"- 100 ml: 55.50 EUR, stock unknown\n" +
		"(checked at 2026-10-18 09:30 UTC)"
	assert.Equal(t, want, resp.Answer)
	assert.Equal(t, []string{"p1"}, resp.CitedProducts)
	assert.Equal(t, "ok", diag.LiveQuoteOutcome)
	assert.Zero(t, f.generator.calls)
}

func TestAnswer_LiveQuoteFetchFailureDegrades(t *testing.T) {
	f := newFixture()
	f.rows["hu"] = []models.RetrievalRow{{ProductID: "p1", Similarity: 0.9, Lang: "hu", Title: "Glow Szérum"}}
	f.settings.GetOrCreateShopSettingsFunc = func(ctx context.Context, shopID, seed string) (*models.ShopSettings, error) {
		return &models.ShopSettings{ShopID: shopID, DefaultSourceLang: "hu"}, nil
	}
	f.directory.GetShopCredentialsFunc = func(ctx context.Context, shopID string) (*models.ShopCredentials, error) {
		return &models.ShopCredentials{ShopDomain: "glow.myshopify.com", AccessToken: "shpat_x", CurrencyCode: "HUF"}, nil
	}
	f.directory.GetExternalIDsFunc = func(ctx context.Context, shopID string, ids []string) (map[string]string, error) {
		return map[string]string{"p1": "111"}, nil
	}
	f.live.FetchLiveProductQuotesFunc = func(ctx context.Context, domain, token string, ids []string) ([]models.LiveProductQuote, error) {
		return nil, errors.New("502 bad gateway")
	}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Mennyibe kerül a szérum?", UserLang: "hu"})

	require.NoError(t, err)
	assert.Equal(t, LiveUnavailableMessage("hu"), resp.Answer)
	assert.Equal(t, "fetch_failed", diag.LiveQuoteOutcome)
	assert.Empty(t, resp.CitedProducts)
}

func TestAnswer_EmptyGenerationDegrades(t *testing.T) {
	f := newFixture()
	f.rows["en"] = []models.RetrievalRow{{ProductID: "p1", Similarity: 0.9, Lang: "en", Title: "Glow Serum"}}
	f.generator.GenerateTextFunc = func(ctx context.Context, s, u, model string, temp float32, max int) (string, error) {
		return "   ", nil
	}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?", UserLang: "en"})

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage("en"), resp.Answer)
	assert.Equal(t, BranchNoContext, diag.Branch)
	assert.Empty(t, resp.CitedProducts)
}

func TestAnswer_Errors(t *testing.T) {
	t.Run("invalid request", func(t *testing.T) {
		_, err := newFixture().build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "  "})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("settings", func(t *testing.T) {
		f := newFixture()
		f.settings.GetOrCreateShopSettingsFunc = func(ctx context.Context, shopID, seed string) (*models.ShopSettings, error) {
			return nil, errors.New("connection refused")
		}
		_, err := f.build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?"})
		assert.ErrorIs(t, err, ErrSettingsFailed)
	})

	t.Run("embedding", func(t *testing.T) {
		f := newFixture()
		f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("quota exceeded")
		}
		_, err := f.build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?"})
		assert.ErrorIs(t, err, ErrEmbeddingFailed)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageEmbedPrimary, stageErr.Stage)
	})

	t.Run("search", func(t *testing.T) {
		f := newFixture()
		f.searcher.SearchByLanguageFunc = func(ctx context.Context, shopID, lang string, emb []float32, n int) ([]models.RetrievalRow, error) {
			return nil, errors.New("relation does not exist")
		}
		_, err := f.build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?"})
		assert.ErrorIs(t, err, ErrSearchFailed)
	})

	t.Run("generation", func(t *testing.T) {
		f := newFixture()
		f.rows["en"] = []models.RetrievalRow{{ProductID: "p1", Similarity: 0.9, Lang: "en", Title: "Glow Serum"}}
		f.generator.GenerateTextFunc = func(ctx context.Context, s, u, model string, temp float32, max int) (string, error) {
			return "", errors.New("503")
		}
		_, err := f.build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?"})
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})

	t.Run("stage timeout", func(t *testing.T) {
		f := newFixture()
		f.config.Timeouts.Embed = 10 * time.Millisecond
		f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		_, err := f.build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?"})
		assert.ErrorIs(t, err, ErrStageTimeout)
	})
}

func TestAnswer_TelemetrySinkFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.sink.err = errors.New("disk full")

	resp, err := f.build(t).Answer(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is it vegan?", UserLang: "en"})

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage("en"), resp.Answer)
	assert.Len(t, f.sink.records, 1)
}

func TestAnswer_LogsStageTotal(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture()
	f.log = logger.NewZapAdapter(zap.New(core))
	f.rows["en"] = []models.RetrievalRow{{ProductID: "p1", Similarity: 0.90, Lang: "en", Title: "Glow Serum", Description: "Brightening serum."}}

	resp, diag, err := f.build(t).AnswerWithDiagnostics(context.Background(), models.AnswerRequest{ShopID: "shop-1", Question: "Is the serum good for dull skin?", UserLang: "en"})
	require.NoError(t, err)

	entries := logs.FilterMessage("Answer completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, diag.Timings.Total().Milliseconds(), fields["stageMs"])
	assert.LessOrEqual(t, fields["stageMs"].(int64), resp.LatencyMs)
}
