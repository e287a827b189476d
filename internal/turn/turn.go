// Package turn answers one customer message end to end: inbound guardrail,
// deterministic fact answer, retrieval pipeline, outbound guardrail, and a
// background escalation when a human has to take over.
package turn

import (
	"context"
	"strings"
	"sync"
	"time"

	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/factplanner"
	"commerce-answers/internal/guardrail"
	"commerce-answers/internal/models"
)

type Source string

const (
	SourceGuardrail         Source = "guardrail"
	SourceHandoff           Source = "handoff"
	SourceFactPlanner       Source = "fact_planner"
	SourcePipeline          Source = "pipeline"
	SourceOutboundGuardrail Source = "outbound_guardrail"
)

// Request is one inbound customer message.
type Request struct {
	ShopID         string   `json:"shopId"`
	ConversationID string   `json:"conversationId,omitempty"`
	UserID         string   `json:"userId,omitempty"`
	Message        string   `json:"message"`
	Lang           string   `json:"lang,omitempty"`
	ProductIDs     []string `json:"productIds,omitempty"`
	ResponseLength string   `json:"responseLength,omitempty"`
}

// Response is the reply to send plus how it was produced.
type Response struct {
	Reply         string                    `json:"reply"`
	Source        Source                    `json:"source"`
	Lang          string                    `json:"lang"`
	Inbound       models.GuardrailResult    `json:"inbound"`
	Outbound      *models.GuardrailResult   `json:"outbound,omitempty"`
	Planned       *models.PlannedFactAnswer `json:"planned,omitempty"`
	Answer        *models.AnswerResponse    `json:"answer,omitempty"`
	CitedProducts []string                  `json:"citedProducts"`
	Escalated     bool                      `json:"escalated"`
}

type Answerer interface {
	Answer(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, error)
}

type RuleLister interface {
	ListEnabled(ctx context.Context, shopID string) ([]models.CustomGuardrail, error)
}

type SnapshotSource interface {
	GetFactSnapshots(ctx context.Context, shopID string, productIDs []string) ([]models.ProductFactSnapshot, error)
}

type Escalator interface {
	Escalate(ctx context.Context, req models.EscalationRequest) models.EscalationOutcome
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Deps struct {
	Engine    *guardrail.Engine
	Planner   *factplanner.Planner
	Answerer  Answerer
	Rules     RuleLister     // optional
	Snapshots SnapshotSource // optional
	Escalator Escalator      // optional
	Logger    Logger

	// EscalationTimeout bounds a background escalation. Defaults to 30s.
	EscalationTimeout time.Duration
}

// Composer is safe for concurrent use.
type Composer struct {
	engine            *guardrail.Engine
	planner           *factplanner.Planner
	answerer          Answerer
	rules             RuleLister
	snapshots         SnapshotSource
	escalator         Escalator
	log               Logger
	escalationTimeout time.Duration

	inflight sync.WaitGroup
}

func New(deps Deps) *Composer {
	c := &Composer{
		engine:            deps.Engine,
		planner:           deps.Planner,
		answerer:          deps.Answerer,
		rules:             deps.Rules,
		snapshots:         deps.Snapshots,
		escalator:         deps.Escalator,
		log:               deps.Logger,
		escalationTimeout: deps.EscalationTimeout,
	}
	if c.escalationTimeout <= 0 {
		c.escalationTimeout = 30 * time.Second
	}
	return c
}

// Handle returns an error only when the answer pipeline fails. Rule and
// snapshot lookups degrade to system rules and the pipeline respectively.
func (c *Composer) Handle(ctx context.Context, req Request) (*Response, error) {
	rules := c.loadRules(ctx, req.ShopID)

	inbound := c.engine.Check(req.Message, models.DirectionUserMessage, guardrail.CheckOptions{
		Lang:        req.Lang,
		CustomRules: rules,
	})
	metrics.GuardrailVerdicts.WithLabelValues(string(models.DirectionUserMessage), verdictLabel(inbound)).Inc()
	handoff := c.engine.DetectHandoff(req.Message)
	replyLang := inbound.Lang

	resp := &Response{Inbound: inbound, Lang: replyLang, CitedProducts: []string{}}

	switch {
	case !inbound.Safe:
		resp.Reply = inbound.SuggestedResponse
		resp.Source = SourceGuardrail
		if inbound.RequiresHuman || handoff {
			resp.Escalated = c.escalate(req, reasonOf(inbound))
		}
		return resp, nil
	case handoff:
		resp.Reply = guardrail.HandoffResponse(replyLang)
		resp.Source = SourceHandoff
		resp.Escalated = c.escalate(req, "handoff_requested")
		return resp, nil
	}

	if planned := c.plan(ctx, req, replyLang); planned != nil {
		resp.Reply = planned.Answer
		resp.Source = SourceFactPlanner
		resp.Planned = planned
		resp.CitedProducts = []string{planned.UsedProductID}
	} else {
		answer, err := c.answerer.Answer(ctx, models.AnswerRequest{
			ShopID:   req.ShopID,
			Question: req.Message,
			UserLang: req.Lang,
		})
		if err != nil {
			return nil, err
		}
		resp.Reply = answer.Answer
		resp.Source = SourcePipeline
		resp.Answer = answer
		resp.Lang = answer.LangDetected
		if answer.CitedProducts != nil {
			resp.CitedProducts = answer.CitedProducts
		}
	}

	outbound := c.engine.Check(resp.Reply, models.DirectionAIResponse, guardrail.CheckOptions{
		Lang:        resp.Lang,
		CustomRules: rules,
	})
	metrics.GuardrailVerdicts.WithLabelValues(string(models.DirectionAIResponse), verdictLabel(outbound)).Inc()
	if !outbound.Safe {
		resp.Outbound = &outbound
		resp.Reply = outbound.SuggestedResponse
		resp.Source = SourceOutboundGuardrail
		resp.CitedProducts = []string{}
		if outbound.RequiresHuman {
			resp.Escalated = c.escalate(req, reasonOf(outbound))
		}
	}
	return resp, nil
}

// Wait blocks until every background escalation has finished.
func (c *Composer) Wait() {
	c.inflight.Wait()
}

func (c *Composer) loadRules(ctx context.Context, shopID string) []models.CustomGuardrail {
	if c.rules == nil || shopID == "" {
		return nil
	}
	rules, err := c.rules.ListEnabled(ctx, shopID)
	if err != nil {
		c.log.Warn("custom guardrails unavailable, using system rules", map[string]interface{}{
			"shopId": shopID,
			"error":  err.Error(),
		})
		return nil
	}
	return rules
}

// plan returns nil when the planner declines or has nothing to work with.
func (c *Composer) plan(ctx context.Context, req Request, replyLang string) *models.PlannedFactAnswer {
	if c.planner == nil || c.snapshots == nil || len(req.ProductIDs) == 0 {
		return nil
	}
	snapshots, err := c.snapshots.GetFactSnapshots(ctx, req.ShopID, req.ProductIDs)
	if err != nil {
		c.log.Warn("fact snapshots unavailable, falling back to retrieval", map[string]interface{}{
			"shopId": req.ShopID,
			"error":  err.Error(),
		})
		return nil
	}

	result := c.planner.Plan(req.Message, replyLang, snapshots, factplanner.Options{
		ResponseLength: factplanner.ResponseLength(req.ResponseLength),
	})
	metrics.PlannerOutcomes.WithLabelValues(factplanner.Outcome(result)).Inc()
	if p, ok := result.(factplanner.Planned); ok {
		return &p.Answer
	}
	return nil
}

// escalate starts a detached escalation and reports whether one was started.
func (c *Composer) escalate(req Request, reason string) bool {
	if c.escalator == nil || req.ConversationID == "" {
		c.log.Warn("escalation required but not possible", map[string]interface{}{
			"conversationId": req.ConversationID,
			"reason":         reason,
		})
		return false
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.escalationTimeout)
		defer cancel()

		out := c.escalator.Escalate(ctx, models.EscalationRequest{
			UserID:         req.UserID,
			ConversationID: req.ConversationID,
			Reason:         reason,
			TriggerText:    req.Message,
		})
		if !out.Succeeded() {
			c.log.Error("escalation incomplete", map[string]interface{}{
				"conversationId": req.ConversationID,
				"failures":       strings.Join(out.Failures, "; "),
			})
		}
	}()
	return true
}

func reasonOf(res models.GuardrailResult) string {
	if res.Reason == models.ReasonCustom && res.CustomReason != "" {
		return "custom:" + res.CustomReason
	}
	return string(res.Reason)
}

func verdictLabel(res models.GuardrailResult) string {
	if res.Safe {
		return "safe"
	}
	return string(res.Reason)
}
