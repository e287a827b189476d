package guardrailcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/common/validation"
	"commerce-answers/internal/guardrail"
	"commerce-answers/internal/models"
)

const TaskType = "guardrail-check"

var ErrInvalidDirection = errors.New("INVALID_DIRECTION")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// RuleSource lists a shop's enabled custom rules in evaluation order.
type RuleSource interface {
	ListEnabled(ctx context.Context, shopID string) ([]models.CustomGuardrail, error)
}

type Handler struct {
	config   *Config
	engine   *guardrail.Engine
	rules    RuleSource
	logger   Logger
	failures *commonerrors.ErrorHandler
}

// NewHandler accepts a nil rules source; only system rules are evaluated then.
func NewHandler(cfg *Config, engine *guardrail.Engine, rules RuleSource, log Logger) *Handler {
	return &Handler{
		config:   cfg,
		engine:   engine,
		rules:    rules,
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
	res, err := validation.Validate(validation.SchemaGuardrailCheck, job.Variables)
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
	if input.Direction == "" {
		input.Direction = models.DirectionUserMessage
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Direction.Valid() {
		return nil, commonerrors.NewInvalidInputError(fmt.Sprintf("%v: %q", ErrInvalidDirection, input.Direction))
	}

	opts := guardrail.CheckOptions{
		Lang:        input.Lang,
		CustomRules: h.loadRules(ctx, input.ShopID),
	}
	result := h.engine.Check(input.Text, input.Direction, opts)

	reason := string(result.Reason)
	if result.Safe {
		reason = "safe"
	}
	metrics.GuardrailVerdicts.WithLabelValues(string(input.Direction), reason).Inc()

	out := &Output{GuardrailResult: result}
	if input.Direction == models.DirectionUserMessage {
		out.HandoffRequested = h.engine.DetectHandoff(input.Text)
	}
	out.ForceEscalation = out.HandoffRequested || result.RequiresHuman

	h.logger.Info("guardrail checked", map[string]interface{}{
		"shopId":          input.ShopID,
		"direction":       input.Direction,
		"safe":            result.Safe,
		"reason":          reason,
		"requiresHuman":   result.RequiresHuman,
		"handoff":         out.HandoffRequested,
		"customRuleCount": len(opts.CustomRules),
	})
	return out, nil
}

// loadRules degrades to system rules only when the store is unavailable.
func (h *Handler) loadRules(ctx context.Context, shopID string) []models.CustomGuardrail {
	if h.rules == nil || shopID == "" {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, h.config.RulesTimeout)
	defer cancel()

	rules, err := h.rules.ListEnabled(rctx, shopID)
	if err != nil {
		h.logger.Warn("custom guardrails unavailable, using system rules", map[string]interface{}{
			"shopId": shopID,
			"error":  err.Error(),
		})
		return nil
	}
	return rules
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

// Execute runs the check without a job, for the HTTP surface and tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Direction == "" {
		input.Direction = models.DirectionUserMessage
	}
	return h.execute(ctx, input)
}
