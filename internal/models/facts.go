package models

// ProductIdentity is the identity block of a fact snapshot.
type ProductIdentity struct {
	Title       string  `json:"title" yaml:"title"`
	VolumeValue float64 `json:"volume_value,omitempty" yaml:"volume_value"`
	VolumeUnit  string  `json:"volume_unit,omitempty" yaml:"volume_unit"`
}

// Facts is the structured fact bag built upstream from curated product content.
type Facts struct {
	ProductIdentity   ProductIdentity `json:"product_identity" yaml:"product_identity"`
	Ingredients       []string        `json:"ingredients,omitempty" yaml:"ingredients"`
	ActiveIngredients []string        `json:"active_ingredients,omitempty" yaml:"active_ingredients"`
	TargetSkinTypes   []string        `json:"target_skin_types,omitempty" yaml:"target_skin_types"`
	UsageSteps        []string        `json:"usage_steps,omitempty" yaml:"usage_steps"`
	Frequency         string          `json:"frequency,omitempty" yaml:"frequency"`
	Warnings          []string        `json:"warnings,omitempty" yaml:"warnings"`
}

// Evidence is a short verbatim quote from source content backing one fact.
type Evidence struct {
	FactKey string `json:"fact_key" yaml:"fact_key"`
	Quote   string `json:"quote" yaml:"quote"`
}

// ProductFactSnapshot is read-only input to the fact planner.
type ProductFactSnapshot struct {
	ProductID   string     `json:"productId" yaml:"product_id"`
	ProductName string     `json:"productName" yaml:"product_name"`
	Facts       Facts      `json:"facts" yaml:"facts"`
	Evidence    []Evidence `json:"evidence,omitempty" yaml:"evidence"`
}

// PlannedFactAnswer is a deterministic answer rendered from a snapshot.
type PlannedFactAnswer struct {
	Answer             string    `json:"answer"`
	QueryType          QueryType `json:"queryType"`
	UsedProductID      string    `json:"usedProductId"`
	UsedFactKeys       []string  `json:"usedFactKeys"`
	EvidenceQuotesUsed []string  `json:"evidenceQuotesUsed"`
	Direct             bool      `json:"direct"`
}
