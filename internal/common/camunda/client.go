package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commerce-answers/internal/common/config"
	"commerce-answers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Connect creates a Zeebe client and verifies the gateway with a topology request.
func Connect(ctx context.Context, cfg config.CamundaConfig) (zbc.Client, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true, // TLS terminates at the gateway sidecar
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.RequestTimeout))
	defer cancel()

	if _, err := client.NewTopologyCommand().Send(ctx); err != nil {
		client.Close()
		return nil, MapError(err, "topology")
	}
	return client, nil
}

// HealthCheck performs a topology request against the broker.
func HealthCheck(ctx context.Context, client zbc.Client) error {
	if _, err := client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// IsTransient reports whether a gateway error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// MapError converts gateway errors into standardized application errors.
func MapError(err error, operation string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	wrapped := fmt.Errorf("zeebe operation '%s' failed: %s", operation, msg)

	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", wrapped)
	case strings.Contains(lower, "not found"):
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "unauthorized"):
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

// Backoff returns the delay before retry attempt n (1-based), capped at max.
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base * time.Duration(1<<(attempt-1))
	if d > max || d <= 0 {
		return max
	}
	return d
}
