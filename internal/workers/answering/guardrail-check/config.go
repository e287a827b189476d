package guardrailcheck

import (
	"time"

	"commerce-answers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// RulesTimeout bounds the custom rule lookup; the check itself is pure.
	RulesTimeout time.Duration
}

func NewConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout:      config.GetDuration(wcfg.Timeout),
		RulesTimeout: 2 * time.Second,
	}
}
