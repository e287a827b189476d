package answerquestion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/models"
	"commerce-answers/internal/pipeline"
)

type MockAnswerer struct {
	AnswerFunc func(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, error)
}

func (m *MockAnswerer) Answer(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, error) {
	return m.AnswerFunc(ctx, req)
}

func createMockJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                7,
		Type:               TaskType,
		ProcessInstanceKey: 70,
		BpmnProcessId:      "answer-turn",
		ElementId:          "Activity_AnswerQuestion",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          variables,
	}}
}

func createTestHandler(t *testing.T, answerer Answerer) *Handler {
	return NewHandler(&Config{Timeout: 30 * time.Second}, answerer, logger.NewTestLogger(t))
}

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, nil)

	input, err := h.parseInput(createMockJob(`{"shopId":"shop-1","question":"Mennyibe kerül?","userLang":"hu"}`))
	require.NoError(t, err)
	assert.Equal(t, models.AnswerRequest{ShopID: "shop-1", Question: "Mennyibe kerül?", UserLang: "hu"}, *input)

	_, err = h.parseInput(createMockJob(`{"shopId":"shop-1"}`))
	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeInvalidInput, stdErr.Code)
	assert.Contains(t, stdErr.Details, "question")
}

func TestHandler_Execute_Success(t *testing.T) {
	fallback := "en"
	answerer := &MockAnswerer{
		AnswerFunc: func(_ context.Context, req models.AnswerRequest) (*models.AnswerResponse, error) {
			assert.Equal(t, "shop-1", req.ShopID)
			return &models.AnswerResponse{
				Answer:        "Ez a krém 50 ml.",
				LangDetected:  "hu",
				UsedFallback:  true,
				FallbackLang:  &fallback,
				CitedProducts: []string{"p1"},
				LatencyMs:     812,
			}, nil
		},
	}
	h := createTestHandler(t, answerer)

	out, err := h.Execute(context.Background(), &Input{ShopID: "shop-1", Question: "Hány ml?"})

	require.NoError(t, err)
	assert.Equal(t, "Ez a krém 50 ml.", out.Answer)
	assert.Equal(t, []string{"p1"}, out.CitedProducts)
}

func TestToStandardError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  commonerrors.ErrorCode
		wantStage string
		retryable bool
	}{
		{
			name:     "invalid request",
			err:      fmt.Errorf("%w: question is empty", pipeline.ErrInvalidRequest),
			wantCode: commonerrors.ErrCodeInvalidInput,
		},
		{
			name:      "settings",
			err:       &pipeline.StageError{Stage: pipeline.StageSettings, Err: fmt.Errorf("%w: pq: too many connections", pipeline.ErrSettingsFailed)},
			wantCode:  commonerrors.ErrCodeSettingsUnavailable,
			wantStage: pipeline.StageSettings,
			retryable: true,
		},
		{
			name:      "embedding",
			err:       &pipeline.StageError{Stage: pipeline.StageEmbedPrimary, Err: fmt.Errorf("%w: 429", pipeline.ErrEmbeddingFailed)},
			wantCode:  commonerrors.ErrCodeEmbeddingFailed,
			wantStage: pipeline.StageEmbedPrimary,
			retryable: true,
		},
		{
			name:      "search",
			err:       &pipeline.StageError{Stage: pipeline.StageSearchFallback, Err: fmt.Errorf("%w: boom", pipeline.ErrSearchFailed)},
			wantCode:  commonerrors.ErrCodeVectorSearchFailed,
			wantStage: pipeline.StageSearchFallback,
			retryable: true,
		},
		{
			name:      "translation",
			err:       &pipeline.StageError{Stage: pipeline.StageBackTranslate, Err: fmt.Errorf("%w: empty", pipeline.ErrTranslationFailed)},
			wantCode:  commonerrors.ErrCodeTranslationFailed,
			wantStage: pipeline.StageBackTranslate,
			retryable: true,
		},
		{
			name:      "generation",
			err:       &pipeline.StageError{Stage: pipeline.StageGenerate, Err: fmt.Errorf("%w: blocked", pipeline.ErrGenerationFailed)},
			wantCode:  commonerrors.ErrCodeGenerationFailed,
			wantStage: pipeline.StageGenerate,
			retryable: true,
		},
		{
			name:      "timeout wins over stage sentinel",
			err:       &pipeline.StageError{Stage: pipeline.StageGenerate, Err: fmt.Errorf("%w: %v", pipeline.ErrStageTimeout, context.DeadlineExceeded)},
			wantCode:  commonerrors.ErrCodeStageTimeout,
			wantStage: pipeline.StageGenerate,
			retryable: true,
		},
		{
			name:     "unknown",
			err:      errors.New("nil pointer"),
			wantCode: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToStandardError(tt.err)

			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			if tt.wantStage != "" {
				assert.Equal(t, tt.wantStage, got.Metadata["stage"])
			} else {
				assert.Nil(t, got.Metadata)
			}
		})
	}
}

func TestHandler_Execute_ErrorIsStandard(t *testing.T) {
	answerer := &MockAnswerer{
		AnswerFunc: func(context.Context, models.AnswerRequest) (*models.AnswerResponse, error) {
			return nil, &pipeline.StageError{Stage: pipeline.StageSearchPrimary, Err: fmt.Errorf("%w: conn refused", pipeline.ErrSearchFailed)}
		},
	}
	h := createTestHandler(t, answerer)

	_, err := h.Execute(context.Background(), &Input{ShopID: "shop-1", Question: "price?"})

	bpmn := commonerrors.ConvertToBPMNError(commonerrors.Normalize(err))
	assert.Equal(t, "VECTOR_SEARCH_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
}
