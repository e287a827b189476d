package escalateconversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/common/validation"
	"commerce-answers/internal/models"
)

const TaskType = "escalate-conversation"

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Escalator interface {
	Escalate(ctx context.Context, req models.EscalationRequest) models.EscalationOutcome
}

// Handler completes every well-formed job; step failures are reported in the
// output instead of failing the process.
type Handler struct {
	config    *Config
	escalator Escalator
	logger    Logger
	failures  *commonerrors.ErrorHandler
}

func NewHandler(cfg *Config, escalator Escalator, log Logger) *Handler {
	return &Handler{
		config:    cfg,
		escalator: escalator,
		logger:    log,
		failures:  commonerrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.ErrCodeInvalidInput)).Inc()
		h.failures.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, h.execute(ctx, input))
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	res, err := validation.Validate(validation.SchemaEscalateConversation, job.Variables)
	if err != nil {
		return nil, commonerrors.NewInvalidInputError(err.Error())
	}
	if !res.Valid {
		return nil, commonerrors.NewInvalidInputError(res.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, commonerrors.NewInvalidInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	outcome := h.escalator.Escalate(ctx, *input)

	channels := outcome.NotifiedChannels
	if channels == nil {
		channels = []string{}
	}
	return &Output{
		ConversationID:   outcome.ConversationID,
		MarkedHumanOwned: outcome.MarkedHumanOwned,
		EscalatedAt:      outcome.EscalatedAt.UTC().Format(time.RFC3339),
		PhoneDecrypted:   outcome.PhoneDecrypted,
		NotifiedChannels: channels,
		Failures:         outcome.Failures,
		Succeeded:        outcome.Succeeded(),
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input)
}
