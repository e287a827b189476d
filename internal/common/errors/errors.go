package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Input
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Stores
	ErrCodeSettingsUnavailable  ErrorCode = "SETTINGS_UNAVAILABLE"
	ErrCodeRuleStoreUnavailable ErrorCode = "RULE_STORE_UNAVAILABLE"
	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"

	// Retrieval
	ErrCodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"
	ErrCodeVectorSearchFailed ErrorCode = "VECTOR_SEARCH_FAILED"
	ErrCodeTranslationFailed  ErrorCode = "TRANSLATION_FAILED"

	// Generation
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrCodeStageTimeout     ErrorCode = "STAGE_TIMEOUT"

	// Commerce and escalation
	ErrCodeLiveQuoteFailed        ErrorCode = "LIVE_QUOTE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError is the normalized error carried through job failure handling.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// BPMNError is what gets thrown to the process engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Input validation failed", details, false)
}

func NewSettingsUnavailableError(err error) *StandardError {
	return newError(ErrCodeSettingsUnavailable, "Shop settings could not be loaded", err.Error(), true)
}

func NewRuleStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeRuleStoreUnavailable, "Custom guardrail rules could not be loaded", err.Error(), true)
}

func NewDatabaseQueryFailedError(queryName string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed",
		fmt.Sprintf("query: %s, error: %s", queryName, err.Error()), true)
}

func NewEmbeddingFailedError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "Embedding service error", err.Error(), true)
}

func NewVectorSearchFailedError(err error) *StandardError {
	return newError(ErrCodeVectorSearchFailed, "Vector search error", err.Error(), true)
}

func NewTranslationFailedError(err error) *StandardError {
	return newError(ErrCodeTranslationFailed, "Translation service error", err.Error(), true)
}

func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Answer generation error", err.Error(), true)
}

func NewStageTimeoutError(stage string) *StandardError {
	return newError(ErrCodeStageTimeout, "Pipeline stage timeout", fmt.Sprintf("stage: %s", stage), true)
}

func NewLiveQuoteFailedError(err error) *StandardError {
	return newError(ErrCodeLiveQuoteFailed, "Live commerce lookup failed", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

// GetRetryCount returns how many job retries a code is worth.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSettingsUnavailable,
		ErrCodeRuleStoreUnavailable,
		ErrCodeDatabaseQueryFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeVectorSearchFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeTranslationFailed,
		ErrCodeGenerationFailed:
		return 2
	case ErrCodeStageTimeout,
		ErrCodeLiveQuoteFailed:
		return 1
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INPUT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SETTINGS") || strings.Contains(codeStr, "RULE_STORE") || strings.Contains(codeStr, "DATABASE"):
		return "STORE"
	case strings.Contains(codeStr, "EMBEDDING") || strings.Contains(codeStr, "SEARCH"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "TRANSLATION") || strings.Contains(codeStr, "GENERATION"):
		return "MODEL"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	case strings.Contains(codeStr, "LIVE_QUOTE") || strings.Contains(codeStr, "NOTIFICATION"):
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}
