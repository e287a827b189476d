package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// ENV override like AI_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // env file is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile looks for a .env next to the binary, in parents, and at the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided only as plain env vars.
func overrideEmptyConfig(cfg *Config) {
	if cfg.AI.APIKey == "" {
		if val := os.Getenv("GEMINI_API_KEY"); val != "" {
			cfg.AI.APIKey = val
		}
	}
	if cfg.Escalation.PhoneEncryptionKey == "" {
		if val := os.Getenv("PHONE_ENCRYPTION_KEY"); val != "" {
			cfg.Escalation.PhoneEncryptionKey = val
		}
	}
	if cfg.Database.Mongo.URI == "" {
		if val := os.Getenv("MONGO_URI"); val != "" {
			cfg.Database.Mongo.URI = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "commerce-answers"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Mongo.Database == "" {
		cfg.Database.Mongo.Database = "commerce"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Models
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.AI.GenerationModel == "" {
		cfg.AI.GenerationModel = "gemini-2.5-flash"
	}
	if cfg.AI.TranslationModel == "" {
		cfg.AI.TranslationModel = cfg.AI.GenerationModel
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.2
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 600
	}

	// Retrieval
	r := &cfg.Retrieval
	if r.VectorBackend == "" {
		r.VectorBackend = "pgvector"
	}
	if r.ElasticsearchIndex == "" {
		r.ElasticsearchIndex = "product-chunks"
	}
	if r.MinSimilarity == 0 {
		r.MinSimilarity = 0.75
	}
	if r.FallbackFactor == 0 {
		r.FallbackFactor = 0.92
	}
	if r.MatchCount == 0 {
		r.MatchCount = 8
	}
	if r.MaxSnippets == 0 {
		r.MaxSnippets = 8
	}
	if r.ExcerptChars == 0 {
		r.ExcerptChars = 1200
	}
	if r.LocalizationConcurrency == 0 {
		r.LocalizationConcurrency = 4
	}
	defaultMillis(&r.SettingsTimeout, 2000)
	defaultMillis(&r.EmbedTimeout, 5000)
	defaultMillis(&r.SearchTimeout, 3000)
	defaultMillis(&r.TranslateTimeout, 8000)
	defaultMillis(&r.ContextTimeout, 3000)
	defaultMillis(&r.LiveQuoteTimeout, 5000)
	defaultMillis(&r.GenerateTimeout, 20000)

	// Commerce
	if cfg.Commerce.Shopify.APIVersion == "" {
		cfg.Commerce.Shopify.APIVersion = "2024-07"
	}
	defaultMillis(&cfg.Commerce.Shopify.Timeout, 5000)
	if cfg.Commerce.Shopify.MaxRetries == 0 {
		cfg.Commerce.Shopify.MaxRetries = 2
	}
	if cfg.Commerce.MaxProducts == 0 {
		cfg.Commerce.MaxProducts = 3
	}
	if cfg.Commerce.MaxVariants == 0 {
		cfg.Commerce.MaxVariants = 3
	}

	if cfg.Guardrails.RulesCollection == "" {
		cfg.Guardrails.RulesCollection = "custom_guardrails"
	}
	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "eu-central-1"
	}
	defaultMillis(&cfg.Cache.SettingsTTL, 300000)

	if cfg.API.Address == "" {
		cfg.API.Address = ":3000"
	}
	if cfg.API.HealthAddress == "" {
		cfg.API.HealthAddress = ":8080"
	}

	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "none"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 0.1
	}
}

func defaultMillis(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	switch cfg.Retrieval.VectorBackend {
	case "pgvector":
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch vector backend")
		}
	default:
		return fmt.Errorf("retrieval.vector_backend must be pgvector or elasticsearch, got %q", cfg.Retrieval.VectorBackend)
	}

	if cfg.Retrieval.MinSimilarity <= 0 || cfg.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval.min_similarity must be in (0, 1]")
	}

	switch cfg.Tracing.Exporter {
	case "none", "stdout":
	case "otlp":
		if cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter must be none, stdout or otlp, got %q", cfg.Tracing.Exporter)
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in [0, 1]")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
