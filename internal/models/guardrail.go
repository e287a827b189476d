package models

// Direction says which side of the conversation a text came from.
type Direction string

const (
	DirectionUserMessage Direction = "user_message"
	DirectionAIResponse  Direction = "ai_response"
	DirectionBoth        Direction = "both"
)

// Valid reports whether d is a direction a check can be run for.
func (d Direction) Valid() bool {
	return d == DirectionUserMessage || d == DirectionAIResponse
}

// Matches reports whether a rule scoped to d applies to text flowing in direction.
func (d Direction) Matches(direction Direction) bool {
	return d == DirectionBoth || d == direction
}

type GuardrailAction string

const (
	ActionBlock    GuardrailAction = "block"
	ActionEscalate GuardrailAction = "escalate"
)

type MatchType string

const (
	MatchKeywords MatchType = "keywords"
	MatchPhrase   MatchType = "phrase"
)

type GuardrailReason string

const (
	ReasonCrisisKeyword GuardrailReason = "crisis_keyword"
	ReasonMedicalAdvice GuardrailReason = "medical_advice"
	ReasonUnsafeContent GuardrailReason = "unsafe_content"
	ReasonCustom        GuardrailReason = "custom"
)

// GuardrailRule is a system rule. Defined at build time and never mutated.
type GuardrailRule struct {
	ID          string            `json:"id"`
	Name        map[string]string `json:"name"`
	Description map[string]string `json:"description"`
	AppliesTo   Direction         `json:"appliesTo"`
	Action      GuardrailAction   `json:"action"`
}

// CustomGuardrail is a merchant-authored rule. Lists are evaluated in order.
type CustomGuardrail struct {
	ID                string          `json:"id" bson:"_id" yaml:"id"`
	Name              string          `json:"name" bson:"name" yaml:"name"`
	Description       string          `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	AppliesTo         Direction       `json:"appliesTo" bson:"applies_to" yaml:"applies_to"`
	MatchType         MatchType       `json:"matchType" bson:"match_type" yaml:"match_type"`
	Value             []string        `json:"value" bson:"value" yaml:"value"`
	Action            GuardrailAction `json:"action" bson:"action" yaml:"action"`
	SuggestedResponse string          `json:"suggestedResponse,omitempty" bson:"suggested_response,omitempty" yaml:"suggested_response"`
}

// GuardrailResult is computed per call and never persisted.
type GuardrailResult struct {
	Safe              bool            `json:"safe"`
	Reason            GuardrailReason `json:"reason,omitempty"`
	CustomReason      string          `json:"customReason,omitempty"`
	RequiresHuman     bool            `json:"requiresHuman"`
	SuggestedResponse string          `json:"suggestedResponse,omitempty"`
	MatchedTerm       string          `json:"matchedTerm,omitempty"`
	Lang              string          `json:"lang,omitempty"`
}
