package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"commerce-answers/internal/common/config"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = orig })
	return &slept
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	slept := noSleep(t)
	core, logs := observer.New(zap.WarnLevel)

	calls := 0
	err := RetryWithBackoff(func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Second, zap.New(core), "PostgreSQL connection")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, 2, logs.FilterMessage("PostgreSQL connection failed, retrying...").Len())
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	slept := noSleep(t)

	calls := 0
	err := RetryWithBackoff(func() error {
		calls++
		return errors.New("timeout")
	}, 8, 4*time.Second, zap.NewNop(), "Redis connection")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis connection failed after 8 attempts")
	assert.Equal(t, 8, calls)
	require.Len(t, *slept, 7)
	assert.Equal(t, maxBackoff, (*slept)[6])
}

func TestBuildEscalator_RejectsBadKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Escalation.PhoneEncryptionKey = "bm90LWEta2V5"

	_, err := buildEscalator(context.Background(), cfg, nil, nil, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "escalation.phone_encryption_key")
}

func TestNoRules(t *testing.T) {
	rules, err := NoRules{}.ListEnabled(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}
