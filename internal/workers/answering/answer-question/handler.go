package answerquestion

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/common/validation"
	"commerce-answers/internal/models"
	"commerce-answers/internal/pipeline"
)

const TaskType = "answer-question"

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Answerer interface {
	Answer(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, error)
}

type Handler struct {
	config   *Config
	answerer Answerer
	logger   Logger
	failures *commonerrors.ErrorHandler
}

func NewHandler(cfg *Config, answerer Answerer, log Logger) *Handler {
	return &Handler{
		config:   cfg,
		answerer: answerer,
		logger:   log,
		failures: commonerrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	res, err := validation.Validate(validation.SchemaAnswerQuestion, job.Variables)
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.answerer.Answer(ctx, *input)
	if err != nil {
		return nil, ToStandardError(err)
	}

	h.logger.Info("question answered", map[string]interface{}{
		"shopId":        input.ShopID,
		"langDetected":  resp.LangDetected,
		"usedFallback":  resp.UsedFallback,
		"citedProducts": len(resp.CitedProducts),
		"latencyMs":     resp.LatencyMs,
	})
	return resp, nil
}

// ToStandardError maps pipeline failures onto job error codes. The failing
// stage, when known, is kept in the error metadata.
func ToStandardError(err error) *commonerrors.StandardError {
	var stdErr *commonerrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	stage := ""
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		stdErr = commonerrors.NewInvalidInputError(err.Error())
	case errors.Is(err, pipeline.ErrStageTimeout):
		stdErr = commonerrors.NewStageTimeoutError(stage)
	case errors.Is(err, pipeline.ErrSettingsFailed):
		stdErr = commonerrors.NewSettingsUnavailableError(err)
	case errors.Is(err, pipeline.ErrEmbeddingFailed):
		stdErr = commonerrors.NewEmbeddingFailedError(err)
	case errors.Is(err, pipeline.ErrSearchFailed):
		stdErr = commonerrors.NewVectorSearchFailedError(err)
	case errors.Is(err, pipeline.ErrTranslationFailed):
		stdErr = commonerrors.NewTranslationFailedError(err)
	case errors.Is(err, pipeline.ErrGenerationFailed):
		stdErr = commonerrors.NewGenerationFailedError(err)
	case errors.Is(err, pipeline.ErrLiveQuoteFailed):
		stdErr = commonerrors.NewLiveQuoteFailedError(err)
	default:
		return commonerrors.Normalize(err)
	}

	if stage != "" {
		stdErr.Metadata = map[string]interface{}{"stage": stage}
	}
	return stdErr
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

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.failures.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
