package pipeline

import (
	"context"
	"sync/atomic"

	"commerce-answers/internal/models"
)

type MockEmbedder struct {
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return m.EmbedTextFunc(ctx, text)
}

type MockSearcher struct {
	SearchByLanguageFunc func(ctx context.Context, shopID, lang string, embedding []float32, matchCount int) ([]models.RetrievalRow, error)
}

func (m *MockSearcher) SearchByLanguage(ctx context.Context, shopID, lang string, embedding []float32, matchCount int) ([]models.RetrievalRow, error) {
	return m.SearchByLanguageFunc(ctx, shopID, lang, embedding, matchCount)
}

type MockTranslator struct {
	TranslateTextFunc func(ctx context.Context, text, fromLang, toLang string) (string, error)
}

func (m *MockTranslator) TranslateText(ctx context.Context, text, fromLang, toLang string) (string, error) {
	return m.TranslateTextFunc(ctx, text, fromLang, toLang)
}

type MockSettingsStore struct {
	GetOrCreateShopSettingsFunc func(ctx context.Context, shopID, seedQuestion string) (*models.ShopSettings, error)
}

func (m *MockSettingsStore) GetOrCreateShopSettings(ctx context.Context, shopID, seedQuestion string) (*models.ShopSettings, error) {
	return m.GetOrCreateShopSettingsFunc(ctx, shopID, seedQuestion)
}

type MockCatalog struct {
	GetProductLocalizationsFunc func(ctx context.Context, shopID string, productIDs []string, lang string) (map[string]models.ProductLocalization, error)
	calls                       atomic.Int32
}

func (m *MockCatalog) GetProductLocalizations(ctx context.Context, shopID string, productIDs []string, lang string) (map[string]models.ProductLocalization, error) {
	m.calls.Add(1)
	return m.GetProductLocalizationsFunc(ctx, shopID, productIDs, lang)
}

type MockDirectory struct {
	GetShopCredentialsFunc func(ctx context.Context, shopID string) (*models.ShopCredentials, error)
	GetExternalIDsFunc     func(ctx context.Context, shopID string, productIDs []string) (map[string]string, error)
}

func (m *MockDirectory) GetShopCredentials(ctx context.Context, shopID string) (*models.ShopCredentials, error) {
	return m.GetShopCredentialsFunc(ctx, shopID)
}

func (m *MockDirectory) GetExternalIDs(ctx context.Context, shopID string, productIDs []string) (map[string]string, error) {
	return m.GetExternalIDsFunc(ctx, shopID, productIDs)
}

type MockLiveCommerce struct {
	FetchLiveProductQuotesFunc func(ctx context.Context, shopDomain, accessToken string, externalIDs []string) ([]models.LiveProductQuote, error)
}

func (m *MockLiveCommerce) FetchLiveProductQuotes(ctx context.Context, shopDomain, accessToken string, externalIDs []string) ([]models.LiveProductQuote, error) {
	return m.FetchLiveProductQuotesFunc(ctx, shopDomain, accessToken, externalIDs)
}

type MockGenerator struct {
	GenerateTextFunc func(ctx context.Context, systemPrompt, userPrompt, model string, temperature float32, maxTokens int) (string, error)
	calls            int
}

func (m *MockGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt, model string, temperature float32, maxTokens int) (string, error) {
	m.calls++
	return m.GenerateTextFunc(ctx, systemPrompt, userPrompt, model, temperature, maxTokens)
}

type MockSink struct {
	records []Record
	err     error
}

func (m *MockSink) RecordAnswer(ctx context.Context, r Record) error {
	m.records = append(m.records, r)
	return m.err
}

func atomicAdd(v *int32, d int32) int32 {
	return atomic.AddInt32(v, d)
}

func atomicMax(v *int32, n int32) {
	for {
		cur := atomic.LoadInt32(v)
		if n <= cur || atomic.CompareAndSwapInt32(v, cur, n) {
			return
		}
	}
}
