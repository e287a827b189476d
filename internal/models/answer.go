package models

// RetrievalRow is one vector search hit.
type RetrievalRow struct {
	ProductID   string  `json:"productId"`
	Similarity  float64 `json:"similarity"`
	Lang        string  `json:"lang"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Chunk       string  `json:"chunk"`
}

type AnswerRequest struct {
	ShopID   string `json:"shopId"`
	Question string `json:"question"`
	UserLang string `json:"userLang,omitempty"`
}

// AnswerResponse is the public result of the answer pipeline.
// CitedProducts is always a subset of the accepted retrieval round's product IDs.
type AnswerResponse struct {
	Answer        string   `json:"answer"`
	LangDetected  string   `json:"langDetected"`
	UsedFallback  bool     `json:"usedFallback"`
	FallbackLang  *string  `json:"fallbackLang"`
	CitedProducts []string `json:"citedProducts"`
	LatencyMs     int64    `json:"latencyMs"`
}
