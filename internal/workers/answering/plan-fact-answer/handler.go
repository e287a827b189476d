package planfactanswer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/common/validation"
	"commerce-answers/internal/factplanner"
	"commerce-answers/internal/models"
)

const TaskType = "plan-fact-answer"

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type SnapshotSource interface {
	GetFactSnapshots(ctx context.Context, shopID string, productIDs []string) ([]models.ProductFactSnapshot, error)
}

type Handler struct {
	config    *Config
	planner   *factplanner.Planner
	snapshots SnapshotSource
	logger    Logger
	failures  *commonerrors.ErrorHandler
}

func NewHandler(cfg *Config, planner *factplanner.Planner, snapshots SnapshotSource, log Logger) *Handler {
	return &Handler{
		config:    cfg,
		planner:   planner,
		snapshots: snapshots,
		logger:    log,
		failures:  commonerrors.NewErrorHandler(log),
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
	res, err := validation.Validate(validation.SchemaPlanFactAnswer, job.Variables)
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
	snapshots := input.Snapshots
	if len(snapshots) == 0 && input.ShopID != "" && len(input.ProductIDs) > 0 && h.snapshots != nil {
		loaded, err := h.snapshots.GetFactSnapshots(ctx, input.ShopID, input.ProductIDs)
		if err != nil {
			return nil, commonerrors.NewDatabaseQueryFailedError("product_fact_snapshots", err)
		}
		snapshots = loaded
	}

	result := h.planner.Plan(input.Query, input.Lang, snapshots, factplanner.Options{
		ResponseLength:       factplanner.ResponseLength(input.ResponseLength),
		IncludeEvidenceQuote: input.IncludeEvidenceQuote,
		MaxEvidenceQuotes:    input.MaxEvidenceQuotes,
	})
	outcome := factplanner.Outcome(result)
	metrics.PlannerOutcomes.WithLabelValues(outcome).Inc()

	h.logger.Info("fact answer planned", map[string]interface{}{
		"outcome":   outcome,
		"snapshots": len(snapshots),
	})

	switch r := result.(type) {
	case factplanner.Planned:
		answer := r.Answer
		return &Output{Planned: true, Answer: &answer}, nil
	case factplanner.NotPlanned:
		return &Output{DeclineReason: string(r.Reason)}, nil
	default:
		return nil, fmt.Errorf("unexpected planner result %T", result)
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

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(commonerrors.Normalize(err).Code)).Inc()
	h.failures.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
