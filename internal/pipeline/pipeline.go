// Package pipeline answers open product questions with multilingual retrieval,
// a source-language fallback, live price and stock checks, and grounded generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

type Branch string

const (
	BranchLiveQuote Branch = "live_quote"
	BranchNoContext Branch = "no_context"
	BranchGenerate  Branch = "generate"
)

// Diagnostics describes how a request was answered. It never reaches the caller's user.
type Diagnostics struct {
	RequestID        string           `json:"requestId"`
	UserLang         string           `json:"userLang"`
	DefaultLang      string           `json:"defaultLang"`
	EffectiveLang    string           `json:"effectiveLang"`
	Primary          EvidenceMetrics  `json:"primary"`
	Fallback         *EvidenceMetrics `json:"fallback,omitempty"`
	UsedFallback     bool             `json:"usedFallback"`
	Branch           Branch           `json:"branch"`
	Snippets         []Snippet        `json:"snippets"`
	CitedProducts    []string         `json:"citedProducts"`
	BackTranslated   bool             `json:"backTranslated"`
	LiveQuoteOutcome string           `json:"liveQuoteOutcome,omitempty"`
	Timings          *Timings         `json:"-"`
}

// Record is the persisted telemetry row of one answered request.
type Record struct {
	RequestID     string
	ShopID        string
	UserLang      string
	EffectiveLang string
	Branch        Branch
	UsedFallback  bool
	PrimaryMax    float64
	FallbackMax   *float64
	CitedProducts []string
	Timings       map[string]int64
	LatencyMs     int64
	CreatedAt     time.Time
}

type Deps struct {
	Embedder  Embedder
	Searcher  VectorSearcher
	Translate Translator
	Settings  SettingsStore
	Catalog   LocalizationStore
	Directory CommerceDirectory
	Live      LiveCommerce
	Generator Generator
	Detector  LanguageDetector
	Telemetry Telemetry
	Sink      TelemetrySink // optional
	Logger    Logger
	Clock     func() time.Time // optional
}

type Pipeline struct {
	embedder   Embedder
	searcher   VectorSearcher
	translator Translator
	settings   SettingsStore
	catalog    LocalizationStore
	directory  CommerceDirectory
	live       LiveCommerce
	generator  Generator
	detector   LanguageDetector
	telemetry  Telemetry
	sink       TelemetrySink
	log        Logger
	now        func() time.Time
	config     Config
}

func New(cfg Config, deps Deps) *Pipeline {
	p := &Pipeline{
		embedder:   deps.Embedder,
		searcher:   deps.Searcher,
		translator: deps.Translate,
		settings:   deps.Settings,
		catalog:    deps.Catalog,
		directory:  deps.Directory,
		live:       deps.Live,
		generator:  deps.Generator,
		detector:   deps.Detector,
		telemetry:  deps.Telemetry,
		sink:       deps.Sink,
		log:        deps.Logger,
		now:        deps.Clock,
		config:     cfg,
	}
	if p.telemetry == nil {
		p.telemetry = nopTelemetry{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.detector == nil {
		p.detector = detectFunc(lang.Detect)
	}
	return p
}

// Answer runs the pipeline and drops the diagnostics.
func (p *Pipeline) Answer(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, error) {
	resp, _, err := p.AnswerWithDiagnostics(ctx, req)
	return resp, err
}

func (p *Pipeline) AnswerWithDiagnostics(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, *Diagnostics, error) {
	started := time.Now()
	question := strings.TrimSpace(req.Question)
	if strings.TrimSpace(req.ShopID) == "" || question == "" {
		return nil, nil, fmt.Errorf("%w: shopId and question are required", ErrInvalidRequest)
	}

	ctx, span := p.telemetry.StartSpan(ctx, "answer", attribute.String("shop.id", req.ShopID))
	defer span.End()

	diag := &Diagnostics{RequestID: uuid.NewString(), Timings: &Timings{}}

	resp, err := p.answer(ctx, req.ShopID, question, req.UserLang, diag)
	if err != nil {
		span.RecordError(err)
		p.log.Error("Answer failed", map[string]interface{}{
			"requestId": diag.RequestID,
			"shopId":    req.ShopID,
			"userLang":  diag.UserLang,
			"error":     err.Error(),
			"timings":   diag.Timings.Millis(),
		})
		return nil, diag, err
	}

	resp.LatencyMs = time.Since(started).Milliseconds()
	span.SetAttributes(
		attribute.String("answer.branch", string(diag.Branch)),
		attribute.Bool("answer.used_fallback", diag.UsedFallback),
	)
	metrics.AnswerBranches.WithLabelValues(string(diag.Branch), diag.UserLang).Inc()

	p.log.Info("Answer completed", map[string]interface{}{
		"requestId":     diag.RequestID,
		"shopId":        req.ShopID,
		"branch":        string(diag.Branch),
		"userLang":      diag.UserLang,
		"effectiveLang": diag.EffectiveLang,
		"usedFallback":  diag.UsedFallback,
		"primaryMax":    diag.Primary.Max,
		"citedProducts": len(diag.CitedProducts),
		"latencyMs":     resp.LatencyMs,
		"stageMs":       diag.Timings.Total().Milliseconds(),
		"timings":       diag.Timings.Millis(),
	})
	p.persist(ctx, req.ShopID, diag, resp)

	return resp, diag, nil
}

func (p *Pipeline) answer(ctx context.Context, shopID, question, hint string, diag *Diagnostics) (*models.AnswerResponse, error) {
	detectStarted := time.Now()
	userLang := lang.Normalize(hint)
	if userLang == "" {
		userLang = lang.OrDefault(p.detector.DetectLanguage(question))
	}
	diag.UserLang = userLang
	diag.EffectiveLang = userLang
	p.observe(ctx, diag, StageDetect, time.Since(detectStarted))

	var settings *models.ShopSettings
	err := p.run(ctx, diag, StageSettings, p.config.Timeouts.Settings, ErrSettingsFailed, func(ctx context.Context) error {
		var err error
		settings, err = p.settings.GetOrCreateShopSettings(ctx, shopID, question)
		return err
	})
	if err != nil {
		return nil, err
	}
	if settings != nil {
		diag.DefaultLang = lang.Normalize(settings.DefaultSourceLang)
	}

	rows, err := p.retrieve(ctx, diag, shopID, userLang, question, StageEmbedPrimary, StageSearchPrimary)
	if err != nil {
		return nil, err
	}
	diag.Primary = measure(userLang, rows)

	promptQuestion := question
	if needsFallback(diag.Primary, p.config.MinSimilarity, p.config.FallbackFactor, diag.DefaultLang, userLang) {
		fbLang := diag.DefaultLang

		translated, err := p.translate(ctx, diag, StageTranslateQuestion, question, userLang, fbLang)
		if err != nil {
			return nil, err
		}
		fbRows, err := p.retrieve(ctx, diag, shopID, fbLang, translated, StageEmbedFallback, StageSearchFallback)
		if err != nil {
			return nil, err
		}

		fb := measure(fbLang, fbRows)
		diag.Fallback = &fb
		if acceptFallback(diag.Primary, fb, p.config.MinSimilarity) {
			rows = fbRows
			promptQuestion = translated
			diag.EffectiveLang = fbLang
			diag.UsedFallback = true
			metrics.RetrievalFallbacks.WithLabelValues("accepted").Inc()
		} else {
			metrics.RetrievalFallbacks.WithLabelValues("rejected").Inc()
		}
	}

	_ = p.run(ctx, diag, StageContext, p.config.Timeouts.Context, nil, func(ctx context.Context) error {
		diag.Snippets = p.buildSnippets(ctx, shopID, diag.EffectiveLang, rows)
		return nil
	})

	var (
		answer string
		canned bool
	)
	switch {
	case IsPriceOrStockQuestion(question, userLang):
		diag.Branch = BranchLiveQuote
		text, cited, ok := p.liveQuote(ctx, diag, shopID)
		if ok {
			answer = text
			diag.CitedProducts = cited
		} else {
			answer, canned = LiveUnavailableMessage(userLang), true
		}

	case len(diag.Snippets) == 0:
		diag.Branch = BranchNoContext
		answer, canned = NoContextMessage(userLang), true

	default:
		diag.Branch = BranchGenerate
		text, err := p.generate(ctx, diag, diag.EffectiveLang, promptQuestion)
		if err != nil {
			return nil, err
		}
		if text == "" {
			diag.Branch = BranchNoContext
			answer, canned = NoContextMessage(userLang), true
		} else {
			answer = text
			diag.CitedProducts = snippetProductIDs(diag.Snippets)
		}
	}

	if !canned && diag.UsedFallback && diag.EffectiveLang != userLang {
		translated, err := p.translate(ctx, diag, StageBackTranslate, answer, diag.EffectiveLang, userLang)
		if err != nil {
			return nil, err
		}
		answer = translated
		diag.BackTranslated = true
	}

	if diag.CitedProducts == nil {
		diag.CitedProducts = []string{}
	}

	resp := &models.AnswerResponse{
		Answer:        answer,
		LangDetected:  userLang,
		UsedFallback:  diag.UsedFallback,
		CitedProducts: diag.CitedProducts,
	}
	if diag.UsedFallback {
		fbLang := diag.EffectiveLang
		resp.FallbackLang = &fbLang
	}
	return resp, nil
}

func (p *Pipeline) retrieve(ctx context.Context, diag *Diagnostics, shopID, code, text, embedStage, searchStage string) ([]models.RetrievalRow, error) {
	var embedding []float32
	err := p.run(ctx, diag, embedStage, p.config.Timeouts.Embed, ErrEmbeddingFailed, func(ctx context.Context) error {
		var err error
		embedding, err = p.embedder.EmbedText(ctx, text)
		if err == nil && len(embedding) == 0 {
			err = errors.New("empty embedding")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var rows []models.RetrievalRow
	err = p.run(ctx, diag, searchStage, p.config.Timeouts.Search, ErrSearchFailed, func(ctx context.Context) error {
		var err error
		rows, err = p.searcher.SearchByLanguage(ctx, shopID, code, embedding, p.config.MatchCount)
		return err
	})
	return rows, err
}

func (p *Pipeline) translate(ctx context.Context, diag *Diagnostics, stage, text, from, to string) (string, error) {
	var out string
	err := p.run(ctx, diag, stage, p.config.Timeouts.Translate, ErrTranslationFailed, func(ctx context.Context) error {
		var err error
		out, err = p.translator.TranslateText(ctx, text, from, to)
		if err == nil && strings.TrimSpace(out) == "" {
			err = errors.New("empty translation")
		}
		return err
	})
	return strings.TrimSpace(out), err
}

func (p *Pipeline) generate(ctx context.Context, diag *Diagnostics, promptLang, question string) (string, error) {
	system := systemPrompt(promptLang)
	user := userPrompt(question, diag.Snippets)

	var out string
	err := p.run(ctx, diag, StageGenerate, p.config.Timeouts.Generate, ErrGenerationFailed, func(ctx context.Context) error {
		var err error
		out, err = p.generator.GenerateText(ctx, system, user, p.config.GenerationModel, p.config.Temperature, p.config.MaxTokens)
		return err
	})
	return strings.TrimSpace(out), err
}

// run executes one external stage under its own timeout and span and records its duration.
func (p *Pipeline) run(ctx context.Context, diag *Diagnostics, stage string, timeout time.Duration, sentinel error, fn func(ctx context.Context) error) error {
	stageCtx, span := p.telemetry.StartSpan(ctx, "answer."+stage)
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, timeout)
		defer cancel()
	}

	started := time.Now()
	err := fn(stageCtx)
	p.observe(ctx, diag, stage, time.Since(started))

	if err != nil {
		span.RecordError(err)
		if sentinel == nil {
			return err
		}
		return wrap(stage, sentinel, stageCtx, err)
	}
	return nil
}

func (p *Pipeline) observe(ctx context.Context, diag *Diagnostics, stage string, d time.Duration) {
	diag.Timings.Add(stage, d)
	p.telemetry.RecordStage(ctx, stage, d)
}

func (p *Pipeline) persist(ctx context.Context, shopID string, diag *Diagnostics, resp *models.AnswerResponse) {
	if p.sink == nil {
		return
	}
	record := Record{
		RequestID:     diag.RequestID,
		ShopID:        shopID,
		UserLang:      diag.UserLang,
		EffectiveLang: diag.EffectiveLang,
		Branch:        diag.Branch,
		UsedFallback:  diag.UsedFallback,
		PrimaryMax:    diag.Primary.Max,
		CitedProducts: diag.CitedProducts,
		Timings:       diag.Timings.Millis(),
		LatencyMs:     resp.LatencyMs,
		CreatedAt:     p.now().UTC(),
	}
	if diag.Fallback != nil {
		fbMax := diag.Fallback.Max
		record.FallbackMax = &fbMax
	}
	if err := p.sink.RecordAnswer(ctx, record); err != nil {
		p.log.Warn("Failed to persist answer telemetry", map[string]interface{}{
			"requestId": diag.RequestID,
			"error":     err.Error(),
		})
	}
}

type detectFunc func(string) string

func (f detectFunc) DetectLanguage(text string) string { return f(text) }

type nopTelemetry struct{}

func (nopTelemetry) RecordStage(context.Context, string, time.Duration) {}

func (nopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return noop.NewTracerProvider().Tracer("pipeline").Start(ctx, name, trace.WithAttributes(attrs...))
}
