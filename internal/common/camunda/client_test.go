package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"commerce-answers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(stderrors.New("rpc error: code = Unavailable")))
	assert.True(t, IsTransient(stderrors.New("context deadline exceeded")))
	assert.False(t, IsTransient(stderrors.New("permission denied")))
	assert.False(t, IsTransient(nil))
}

func TestMapError(t *testing.T) {
	var stdErr *errors.StandardError

	err := MapError(stderrors.New("deadline exceeded"), "topology")
	assert.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrorCode("TIMEOUT_ERROR"), stdErr.Code)

	err = MapError(stderrors.New("unauthorized"), "complete")
	assert.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrorCode("AUTHENTICATION_ERROR"), stdErr.Code)

	err = MapError(stderrors.New("connection refused"), "topology")
	assert.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrorCode("EXTERNAL_SERVICE_ERROR"), stdErr.Code)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(time.Second, 1, 10*time.Second))
	assert.Equal(t, 4*time.Second, Backoff(time.Second, 3, 10*time.Second))
	assert.Equal(t, 10*time.Second, Backoff(time.Second, 6, 10*time.Second))
}

type MockJobClient struct{}

func (MockJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (MockJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (MockJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

type recorded struct {
	taskType string
	status   string
}

type MockJobRecorder struct {
	processed []recorded
	durations []recorded
}

func (m *MockJobRecorder) RecordJobProcessed(ctx context.Context, taskType, status string) {
	m.processed = append(m.processed, recorded{taskType, status})
}

func (m *MockJobRecorder) RecordJobDuration(ctx context.Context, taskType string, d time.Duration, status string) {
	m.durations = append(m.durations, recorded{taskType, status})
}

func TestInstrument_CallsHandler(t *testing.T) {
	called := false
	h := Instrument("test-task", func(client worker.JobClient, job entities.Job) {
		called = true
	}, nil)

	h(nil, entities.Job{})

	assert.True(t, called)
}

func TestInstrument_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name    string
		handler worker.JobHandler
		want    string
	}{
		{"completed", func(c worker.JobClient, _ entities.Job) { c.NewCompleteJobCommand() }, JobCompleted},
		{"failed", func(c worker.JobClient, _ entities.Job) { c.NewFailJobCommand() }, JobFailed},
		{"bpmn error", func(c worker.JobClient, _ entities.Job) { c.NewThrowErrorCommand() }, JobErrorThrown},
		{"no command", func(worker.JobClient, entities.Job) {}, JobUnanswered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &MockJobRecorder{}

			Instrument("guardrail-check", tt.handler, rec)(MockJobClient{}, entities.Job{})

			want := []recorded{{"guardrail-check", tt.want}}
			assert.Equal(t, want, rec.processed)
			assert.Equal(t, want, rec.durations)
		})
	}
}
