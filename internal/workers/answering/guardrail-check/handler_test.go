package guardrailcheck

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/guardrail"
	"commerce-answers/internal/models"
)

type MockRuleSource struct {
	ListEnabledFunc func(ctx context.Context, shopID string) ([]models.CustomGuardrail, error)
	calls           int
}

func (m *MockRuleSource) ListEnabled(ctx context.Context, shopID string) ([]models.CustomGuardrail, error) {
	m.calls++
	if m.ListEnabledFunc != nil {
		return m.ListEnabledFunc(ctx, shopID)
	}
	return nil, nil
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "answer-turn",
		ElementId:          "Activity_GuardrailCheck",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T, rules RuleSource) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second, RulesTimeout: time.Second},
		guardrail.NewEngine(), rules, logger.NewTestLogger(t))
}

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, nil)

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
		validate  func(t *testing.T, input *Input)
	}{
		{
			name:      "direction defaults to user message",
			variables: map[string]interface{}{"shopId": "shop-1", "text": "hello"},
			validate: func(t *testing.T, input *Input) {
				assert.Equal(t, models.DirectionUserMessage, input.Direction)
				assert.Equal(t, "shop-1", input.ShopID)
			},
		},
		{
			name:      "ai response with lang",
			variables: map[string]interface{}{"text": "Merhaba", "direction": "ai_response", "lang": "tr"},
			validate: func(t *testing.T, input *Input) {
				assert.Equal(t, models.DirectionAIResponse, input.Direction)
				assert.Equal(t, "tr", input.Lang)
			},
		},
		{
			name:      "missing text",
			variables: map[string]interface{}{"shopId": "shop-1"},
			wantErr:   true,
		},
		{
			name:      "unknown direction",
			variables: map[string]interface{}{"text": "hi", "direction": "both"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				var stdErr *commonerrors.StandardError
				require.True(t, errors.As(err, &stdErr))
				assert.Equal(t, commonerrors.ErrCodeInvalidInput, stdErr.Code)
				return
			}
			require.NoError(t, err)
			tt.validate(t, input)
		})
	}
}

func TestHandler_Execute_Verdicts(t *testing.T) {
	tests := []struct {
		name         string
		input        *Input
		wantSafe     bool
		wantReason   models.GuardrailReason
		wantHandoff  bool
		wantEscalate bool
		wantResponse string
	}{
		{
			name:     "safe product question",
			input:    &Input{Text: "How big is the bottle?"},
			wantSafe: true,
		},
		{
			name:         "crisis escalates",
			input:        &Input{Text: "I think I'm having an allergic reaction"},
			wantReason:   models.ReasonCrisisKeyword,
			wantEscalate: true,
		},
		{
			name:         "medical advice declined in hungarian",
			input:        &Input{Text: "Mit ajánl az orvos ekcéma ellen?", Lang: "hu"},
			wantReason:   models.ReasonMedicalAdvice,
			wantResponse: guardrail.SafeResponse(models.ReasonMedicalAdvice, "hu"),
		},
		{
			name:         "handoff on a safe message forces escalation",
			input:        &Input{Text: "Can I talk to a human please?"},
			wantSafe:     true,
			wantHandoff:  true,
			wantEscalate: true,
		},
		{
			name:     "handoff phrases in generated answers are ignored",
			input:    &Input{Text: "Our customer service team is available 9 to 5.", Direction: models.DirectionAIResponse},
			wantSafe: true,
		},
		{
			name:       "unsafe claim in generated answer",
			input:      &Input{Text: "This serum gives guaranteed results in a week.", Direction: models.DirectionAIResponse},
			wantReason: models.ReasonUnsafeContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, nil)

			out, err := h.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSafe, out.Safe)
			if !tt.wantSafe {
				assert.Equal(t, tt.wantReason, out.Reason)
			}
			assert.Equal(t, tt.wantHandoff, out.HandoffRequested)
			assert.Equal(t, tt.wantEscalate, out.ForceEscalation)
			if tt.wantResponse != "" {
				assert.Equal(t, tt.wantResponse, out.SuggestedResponse)
			}
		})
	}
}

func TestHandler_Execute_CustomRules(t *testing.T) {
	rules := &MockRuleSource{
		ListEnabledFunc: func(_ context.Context, shopID string) ([]models.CustomGuardrail, error) {
			assert.Equal(t, "shop-1", shopID)
			return []models.CustomGuardrail{{
				ID:        "r1",
				Name:      "Refunds",
				AppliesTo: models.DirectionBoth,
				MatchType: models.MatchPhrase,
				Value:     []string{"money back"},
				Action:    models.ActionEscalate,
			}}, nil
		},
	}
	h := createTestHandler(t, rules)

	out, err := h.Execute(context.Background(), &Input{ShopID: "shop-1", Text: "I want my MONEY BACK"})

	require.NoError(t, err)
	assert.False(t, out.Safe)
	assert.Equal(t, models.ReasonCustom, out.Reason)
	assert.Equal(t, "Refunds", out.CustomReason)
	assert.True(t, out.RequiresHuman)
	assert.True(t, out.ForceEscalation)
}

func TestHandler_Execute_RuleStoreFailureFallsBackToSystemRules(t *testing.T) {
	rules := &MockRuleSource{
		ListEnabledFunc: func(context.Context, string) ([]models.CustomGuardrail, error) {
			return nil, errors.New("server selection timeout")
		},
	}
	h := createTestHandler(t, rules)

	out, err := h.Execute(context.Background(), &Input{ShopID: "shop-1", Text: "Is this good for eczema?"})

	require.NoError(t, err)
	assert.Equal(t, 1, rules.calls)
	assert.Equal(t, models.ReasonMedicalAdvice, out.Reason)
}

func TestHandler_Execute_NoShopSkipsRuleLookup(t *testing.T) {
	rules := &MockRuleSource{}
	h := createTestHandler(t, rules)

	_, err := h.Execute(context.Background(), &Input{Text: "hello"})

	require.NoError(t, err)
	assert.Zero(t, rules.calls)
}

func TestOutput_FlattensResult(t *testing.T) {
	out := Output{
		GuardrailResult:  models.GuardrailResult{Safe: true, Lang: "en"},
		HandoffRequested: true,
		ForceEscalation:  true,
	}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &vars))
	assert.Equal(t, true, vars["safe"])
	assert.Equal(t, true, vars["forceEscalation"])
	assert.Equal(t, "en", vars["lang"])
}
