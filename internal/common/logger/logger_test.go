package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_FieldsAndChildren(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	child := log.With(map[string]interface{}{"taskType": "answer-question"})
	child.Info("processing job", map[string]interface{}{"jobKey": int64(42)})
	child.WithError(errors.New("boom")).Error("job failed", nil)
	log.Debug("debug line", map[string]interface{}{"err": errors.New("named")})

	entries := logs.All()
	assert.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "answer-question", first["taskType"])
	assert.Equal(t, int64(42), first["jobKey"])

	second := entries[1].ContextMap()
	assert.Equal(t, "boom", second["error"])
	assert.Equal(t, "answer-question", second["taskType"])

	third := entries[2].ContextMap()
	assert.Equal(t, "named", third["err"])
}

func TestNew_Levels(t *testing.T) {
	l := New("warn", "json")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l = New("debug", "console")
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.WithFields(map[string]interface{}{"a": 1}).Warn("ignored", nil)
	})
}
