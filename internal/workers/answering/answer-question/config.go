package answerquestion

import (
	"time"

	"commerce-answers/internal/common/config"
)

// Config bounds the whole job; each pipeline stage has its own, shorter deadline.
type Config struct {
	Timeout time.Duration
}

func NewConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
