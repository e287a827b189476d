package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("INVALID_REQUEST")
	ErrEmbeddingFailed   = errors.New("EMBEDDING_FAILED")
	ErrSearchFailed      = errors.New("VECTOR_SEARCH_FAILED")
	ErrTranslationFailed = errors.New("TRANSLATION_FAILED")
	ErrSettingsFailed    = errors.New("SETTINGS_UNAVAILABLE")
	ErrGenerationFailed  = errors.New("GENERATION_FAILED")
	ErrLiveQuoteFailed   = errors.New("LIVE_QUOTE_FAILED")
	ErrStageTimeout      = errors.New("STAGE_TIMEOUT")
)

// StageError names the stage an external failure happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// wrap tags err with the stage sentinel, or with ErrStageTimeout when the
// stage's own deadline fired.
func wrap(stage string, sentinel error, stageCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrStageTimeout, err)}
	}
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", sentinel, err)}
}
