package camunda

import (
	"context"
	"time"

	"commerce-answers/internal/common/config"
	"commerce-answers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
}

// JobRecorder receives the outcome and duration of every handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, d time.Duration, status string)
}

const (
	JobCompleted   = "completed"
	JobFailed      = "failed"
	JobErrorThrown = "error_thrown"
	JobUnanswered  = "unanswered"
)

// outcomeClient notes which command the handler issued for the job.
type outcomeClient struct {
	worker.JobClient
	status string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = JobCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = JobFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = JobErrorThrown
	return c.JobClient.NewThrowErrorCommand()
}

// Instrument wraps a job handler with the worker_* prometheus series and, when
// rec is set, the otel job counter and histogram keyed by outcome.
// Completion and failure counters are recorded by the handlers themselves.
func Instrument(taskType string, handler worker.JobHandler, rec JobRecorder) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		start := time.Now()
		oc := &outcomeClient{JobClient: client, status: JobUnanswered}
		defer func() {
			active.Dec()
			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if rec != nil {
				ctx := context.Background()
				rec.RecordJobProcessed(ctx, taskType, oc.status)
				rec.RecordJobDuration(ctx, taskType, elapsed, oc.status)
			}
		}()
		handler(oc, job)
	}
}

// StartWorker opens an instrumented job worker, or returns nil when the worker is disabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, rec JobRecorder, log Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, rec)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}
