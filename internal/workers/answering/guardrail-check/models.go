package guardrailcheck

import "commerce-answers/internal/models"

type Input struct {
	ShopID    string           `json:"shopId"`
	Text      string           `json:"text"`
	Direction models.Direction `json:"direction"`
	Lang      string           `json:"lang"`
}

type Output struct {
	models.GuardrailResult
	HandoffRequested bool `json:"handoffRequested"`
	// ForceEscalation is set when either the verdict or the customer asks for a human.
	ForceEscalation bool `json:"forceEscalation"`
}
