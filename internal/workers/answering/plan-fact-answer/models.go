package planfactanswer

import "commerce-answers/internal/models"

// Input carries snapshots inline, or a shop and product IDs to load them from.
type Input struct {
	Query                string                       `json:"query"`
	Lang                 string                       `json:"lang"`
	Snapshots            []models.ProductFactSnapshot `json:"snapshots"`
	ShopID               string                       `json:"shopId"`
	ProductIDs           []string                     `json:"productIds"`
	ResponseLength       string                       `json:"responseLength"`
	IncludeEvidenceQuote *bool                        `json:"includeEvidenceQuote"`
	MaxEvidenceQuotes    int                          `json:"maxEvidenceQuotes"`
}

type Output struct {
	Planned       bool                      `json:"planned"`
	Answer        *models.PlannedFactAnswer `json:"answer,omitempty"`
	DeclineReason string                    `json:"declineReason,omitempty"`
}
