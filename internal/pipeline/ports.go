package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"commerce-answers/internal/models"
)

type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher returns up to matchCount rows indexed in lang, most similar first.
type VectorSearcher interface {
	SearchByLanguage(ctx context.Context, shopID, lang string, embedding []float32, matchCount int) ([]models.RetrievalRow, error)
}

type Translator interface {
	TranslateText(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// SettingsStore seeds a shop's default source language from its first question.
type SettingsStore interface {
	GetOrCreateShopSettings(ctx context.Context, shopID, seedQuestion string) (*models.ShopSettings, error)
}

type LocalizationStore interface {
	GetProductLocalizations(ctx context.Context, shopID string, productIDs []string, lang string) (map[string]models.ProductLocalization, error)
}

// CommerceDirectory resolves storefront credentials and external product IDs.
// GetShopCredentials returns nil, nil for a shop that never connected a storefront.
type CommerceDirectory interface {
	GetShopCredentials(ctx context.Context, shopID string) (*models.ShopCredentials, error)
	GetExternalIDs(ctx context.Context, shopID string, productIDs []string) (map[string]string, error)
}

type LiveCommerce interface {
	FetchLiveProductQuotes(ctx context.Context, shopDomain, accessToken string, externalIDs []string) ([]models.LiveProductQuote, error)
}

type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt, model string, temperature float32, maxTokens int) (string, error)
}

type LanguageDetector interface {
	DetectLanguage(text string) string
}

// Telemetry records stage durations and opens spans.
type Telemetry interface {
	RecordStage(ctx context.Context, stage string, d time.Duration)
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// TelemetrySink persists one row per answered request. Failures are logged and ignored.
type TelemetrySink interface {
	RecordAnswer(ctx context.Context, record Record) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}
