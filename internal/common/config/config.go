package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	AI            AIConfig                `mapstructure:"ai"`
	Retrieval     RetrievalConfig         `mapstructure:"retrieval"`
	Commerce      CommerceConfig          `mapstructure:"commerce"`
	Guardrails    GuardrailConfig         `mapstructure:"guardrails"`
	Escalation    EscalationConfig        `mapstructure:"escalation"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Cache         CacheConfig             `mapstructure:"cache"`
	API           APIConfig               `mapstructure:"api"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Mongo         MongoConfig         `mapstructure:"mongo"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Answer flow ---

// AIConfig configures the embedding, generation and translation models.
type AIConfig struct {
	APIKey           string  `mapstructure:"api_key"`
	EmbeddingModel   string  `mapstructure:"embedding_model"`
	GenerationModel  string  `mapstructure:"generation_model"`
	TranslationModel string  `mapstructure:"translation_model"`
	Temperature      float64 `mapstructure:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens"`
}

// RetrievalConfig holds thresholds, bounds and per-stage timeouts of the answer pipeline.
type RetrievalConfig struct {
	VectorBackend           string  `mapstructure:"vector_backend"` // pgvector | elasticsearch
	ElasticsearchIndex      string  `mapstructure:"elasticsearch_index"`
	MinSimilarity           float64 `mapstructure:"min_similarity"`
	FallbackFactor          float64 `mapstructure:"fallback_factor"`
	MatchCount              int     `mapstructure:"match_count"`
	MaxSnippets             int     `mapstructure:"max_snippets"`
	ExcerptChars            int     `mapstructure:"excerpt_chars"`
	LocalizationConcurrency int     `mapstructure:"localization_concurrency"`

	SettingsTimeout  int `mapstructure:"settings_timeout"`   // milliseconds
	EmbedTimeout     int `mapstructure:"embed_timeout"`      // milliseconds
	SearchTimeout    int `mapstructure:"search_timeout"`     // milliseconds
	TranslateTimeout int `mapstructure:"translate_timeout"`  // milliseconds
	ContextTimeout   int `mapstructure:"context_timeout"`    // milliseconds
	LiveQuoteTimeout int `mapstructure:"live_quote_timeout"` // milliseconds
	GenerateTimeout  int `mapstructure:"generate_timeout"`   // milliseconds
}

type CommerceConfig struct {
	Shopify struct {
		APIVersion string `mapstructure:"api_version"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"shopify"`
	MaxProducts int `mapstructure:"max_products"`
	MaxVariants int `mapstructure:"max_variants"`
}

type GuardrailConfig struct {
	RulesCollection string `mapstructure:"rules_collection"`
}

type EscalationConfig struct {
	// PhoneEncryptionKey is a base64 32-byte secretbox key.
	PhoneEncryptionKey string `mapstructure:"phone_encryption_key"`
}

// NotificationConfig holds merchant notification channels.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type CacheConfig struct {
	SettingsTTL int `mapstructure:"settings_ttl"` // milliseconds
}

type APIConfig struct {
	Address       string `mapstructure:"address"`
	HealthAddress string `mapstructure:"health_address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig selects the span exporter: none, stdout or otlp.
type TracingConfig struct {
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
