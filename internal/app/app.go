// Package app builds the answer services from configuration. The worker
// manager and the HTTP API both start here.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	commonaws "commerce-answers/internal/common/aws"
	"commerce-answers/internal/common/camunda"
	"commerce-answers/internal/common/config"
	"commerce-answers/internal/common/database"
	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/common/observability"
	"commerce-answers/internal/common/secrets"
	"commerce-answers/internal/factplanner"
	"commerce-answers/internal/guardrail"
	"commerce-answers/internal/integrations/gemini"
	"commerce-answers/internal/integrations/notify"
	"commerce-answers/internal/integrations/shopify"
	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
	"commerce-answers/internal/pipeline"
	"commerce-answers/internal/store"
)

// RuleLister lists a shop's enabled custom guardrails in evaluation order.
type RuleLister interface {
	ListEnabled(ctx context.Context, shopID string) ([]models.CustomGuardrail, error)
}

// Services holds every long-lived dependency of the answer flow.
type Services struct {
	Config *config.Config

	Postgres *database.PostgresClient
	Redis    *database.RedisClient
	Mongo    *database.MongoClient         // nil without database.mongo.uri
	Elastic  *database.ElasticsearchClient // nil unless the vector backend is elasticsearch

	Settings      *store.SettingsStore
	Catalog       *store.CatalogStore
	Conversations *store.ConversationStore
	Telemetry     *store.TelemetryStore
	Rules         RuleLister

	Engine    *guardrail.Engine
	Planner   *factplanner.Planner
	Pipeline  *pipeline.Pipeline
	Escalator *guardrail.Escalator

	Obs *observability.Observability
}

// Build connects to every backing service, retrying each with backoff, and
// assembles the domain services on top.
func Build(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, obs *observability.Observability) (*Services, error) {
	log := logger.NewZapAdapter(zapLog)
	s := &Services{
		Config:  cfg,
		Engine:  guardrail.NewEngine(),
		Planner: factplanner.New(),
		Obs:     obs,
	}

	err := RetryWithBackoff(func() error {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		s.Postgres = pg
		return nil
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	zapLog.Info("PostgreSQL connected successfully")

	err = RetryWithBackoff(func() error {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		if err := rdb.Ping(ctx); err != nil {
			_ = rdb.Close()
			return err
		}
		s.Redis = rdb
		return nil
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	zapLog.Info("Redis connected successfully")

	if cfg.Database.Mongo.URI != "" {
		err = RetryWithBackoff(func() error {
			mc, err := database.NewMongo(ctx, cfg.Database.Mongo)
			if err != nil {
				return err
			}
			if err := mc.Ping(ctx); err != nil {
				_ = mc.Close(ctx)
				return err
			}
			s.Mongo = mc
			return nil
		}, 10, 2*time.Second, zapLog, "MongoDB connection")
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		zapLog.Info("MongoDB connected successfully")
	} else {
		zapLog.Warn("database.mongo.uri not set, custom guardrails disabled")
	}

	var searcher pipeline.VectorSearcher
	if cfg.Retrieval.VectorBackend == "elasticsearch" {
		err = RetryWithBackoff(func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			s.Elastic = es
			return nil
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		zapLog.Info("Elasticsearch connected successfully")
		searcher = store.NewESVectorSearch(s.Elastic.Client, cfg.Retrieval.ElasticsearchIndex)
	} else {
		searcher = store.NewPGVectorSearch(s.Postgres.DB)
	}

	ai, err := gemini.New(ctx, cfg.AI)
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	s.Settings = store.NewSettingsStore(s.Postgres.DB, s.Redis.Client, config.GetDuration(cfg.Cache.SettingsTTL), log)
	s.Catalog = store.NewCatalogStore(s.Postgres.DB)
	s.Conversations = store.NewConversationStore(s.Postgres.DB)
	s.Telemetry = store.NewTelemetryStore(s.Postgres.DB)
	if s.Mongo != nil {
		s.Rules = store.NewRuleStore(s.Mongo.Database, cfg.Guardrails.RulesCollection)
	} else {
		s.Rules = NoRules{}
	}

	s.Pipeline = pipeline.New(pipeline.NewConfig(cfg), pipeline.Deps{
		Embedder:  ai,
		Searcher:  searcher,
		Translate: ai,
		Settings:  s.Settings,
		Catalog:   s.Catalog,
		Directory: s.Catalog,
		Live:      shopify.NewClient(cfg.Commerce),
		Generator: ai,
		Detector:  lang.Detector{},
		Telemetry: obs,
		Sink:      s.Telemetry,
		Logger:    log,
	})

	s.Escalator, err = buildEscalator(ctx, cfg, s.Conversations, log, zapLog)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	return s, nil
}

// buildEscalator leaves the phone and notification steps unset when their
// configuration is missing; the escalator records those steps as failed.
func buildEscalator(ctx context.Context, cfg *config.Config, conversations *store.ConversationStore, log logger.Logger, zapLog *zap.Logger) (*guardrail.Escalator, error) {
	var phones guardrail.PhoneDecrypter
	if key := cfg.Escalation.PhoneEncryptionKey; key != "" {
		box, err := secrets.NewBox(key)
		if err != nil {
			return nil, fmt.Errorf("escalation.phone_encryption_key: %w", err)
		}
		phones = box
	} else {
		zapLog.Warn("escalation.phone_encryption_key not set, customer phones stay masked")
	}

	var notifier guardrail.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		clients, err := commonaws.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, err
		}
		notifier = notify.NewNotifier(cfg.Notifications, clients.SES, clients.SNS, log)
	} else {
		zapLog.Warn("no notification channel enabled, merchants will not be notified")
	}

	return guardrail.NewEscalator(conversations, conversations, phones, notifier, log), nil
}

// Ready pings every connected backend.
func (s *Services) Ready(ctx context.Context) map[string]error {
	checks := map[string]error{
		"postgres": s.Postgres.Ping(ctx),
		"redis":    s.Redis.Ping(ctx),
	}
	if s.Mongo != nil {
		checks["mongo"] = s.Mongo.Ping(ctx)
	}
	if s.Elastic != nil {
		checks["elasticsearch"] = s.Elastic.Ping(ctx)
	}
	return checks
}

func (s *Services) Close(ctx context.Context) {
	if s.Mongo != nil {
		_ = s.Mongo.Close(ctx)
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Postgres != nil {
		_ = s.Postgres.Close()
	}
}

// NoRules stands in for the rule store when mongo is not configured.
type NoRules struct{}

func (NoRules) ListEnabled(context.Context, string) ([]models.CustomGuardrail, error) {
	return nil, nil
}

// RetryWithBackoff runs operation until it succeeds or maxRetries attempts are used.
func RetryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			delay := camunda.Backoff(initialDelay, i+1, maxBackoff)
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			sleep(delay)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

const maxBackoff = 30 * time.Second

var sleep = time.Sleep
