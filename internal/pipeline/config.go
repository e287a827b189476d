package pipeline

import (
	"time"

	"commerce-answers/internal/common/config"
)

// StageTimeouts bounds every external call of a request.
type StageTimeouts struct {
	Settings  time.Duration
	Embed     time.Duration
	Search    time.Duration
	Translate time.Duration
	Context   time.Duration
	LiveQuote time.Duration
	Generate  time.Duration
}

type Config struct {
	MinSimilarity           float64
	FallbackFactor          float64
	MatchCount              int
	MaxSnippets             int
	ExcerptChars            int
	LocalizationConcurrency int

	GenerationModel string
	Temperature     float32
	MaxTokens       int

	MaxProducts int
	MaxVariants int

	Timeouts StageTimeouts
}

// NewConfig reads the retrieval, model and commerce sections of the service config.
func NewConfig(cfg *config.Config) Config {
	r := cfg.Retrieval
	return Config{
		MinSimilarity:           r.MinSimilarity,
		FallbackFactor:          r.FallbackFactor,
		MatchCount:              r.MatchCount,
		MaxSnippets:             r.MaxSnippets,
		ExcerptChars:            r.ExcerptChars,
		LocalizationConcurrency: r.LocalizationConcurrency,
		GenerationModel:         cfg.AI.GenerationModel,
		Temperature:             float32(cfg.AI.Temperature),
		MaxTokens:               cfg.AI.MaxTokens,
		MaxProducts:             cfg.Commerce.MaxProducts,
		MaxVariants:             cfg.Commerce.MaxVariants,
		Timeouts: StageTimeouts{
			Settings:  config.GetDuration(r.SettingsTimeout),
			Embed:     config.GetDuration(r.EmbedTimeout),
			Search:    config.GetDuration(r.SearchTimeout),
			Translate: config.GetDuration(r.TranslateTimeout),
			Context:   config.GetDuration(r.ContextTimeout),
			LiveQuote: config.GetDuration(r.LiveQuoteTimeout),
			Generate:  config.GetDuration(r.GenerateTimeout),
		},
	}
}

// DefaultConfig matches the defaults the config loader applies.
func DefaultConfig() Config {
	return Config{
		MinSimilarity:           0.75,
		FallbackFactor:          0.92,
		MatchCount:              8,
		MaxSnippets:             8,
		ExcerptChars:            1200,
		LocalizationConcurrency: 4,
		GenerationModel:         "gemini-2.5-flash",
		Temperature:             0.2,
		MaxTokens:               600,
		MaxProducts:             3,
		MaxVariants:             3,
		Timeouts: StageTimeouts{
			Settings:  2 * time.Second,
			Embed:     5 * time.Second,
			Search:    3 * time.Second,
			Translate: 8 * time.Second,
			Context:   3 * time.Second,
			LiveQuote: 5 * time.Second,
			Generate:  20 * time.Second,
		},
	}
}
