package validation

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names match the job types whose variables they describe.
const (
	SchemaGuardrailCheck       = "guardrail-check"
	SchemaPlanFactAnswer       = "plan-fact-answer"
	SchemaAnswerQuestion       = "answer-question"
	SchemaEscalateConversation = "escalate-conversation"
	SchemaTurn                 = "turn"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	compiled   = map[string]*gojsonschema.Schema{}
	compiledMu sync.Mutex
)

func schemaFor(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", name, err)
	}
	compiled[name] = s
	return s, nil
}

// Validate checks a decoded document (map, struct or raw JSON string) against a named schema.
func Validate(name string, document interface{}) (*ValidationResult, error) {
	schema, err := schemaFor(name)
	if err != nil {
		return nil, err
	}

	var loader gojsonschema.JSONLoader
	switch d := document.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(d)
	case []byte:
		loader = gojsonschema.NewBytesLoader(d)
	default:
		loader = gojsonschema.NewGoLoader(d)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validate %q: %w", name, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

// Summary joins all messages into one line for error details.
func (vr *ValidationResult) Summary() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}
