// Package gemini adapts the Google GenAI SDK to the embedding, generation and
// translation ports of the answer pipeline.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"

	"commerce-answers/internal/common/config"
	"commerce-answers/internal/lang"
)

var (
	ErrEmptyEmbedding = errors.New("EMPTY_EMBEDDING")
	ErrEmptyResponse  = errors.New("EMPTY_MODEL_RESPONSE")
)

// modelAPI is the slice of *genai.Models the client calls.
type modelAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models           modelAPI
	embeddingModel   string
	translationModel string
}

// New creates a Gemini API client from the ai config section.
func New(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newWithModels(client.Models, cfg), nil
}

func newWithModels(models modelAPI, cfg config.AIConfig) *Client {
	return &Client{
		models:           models,
		embeddingModel:   cfg.EmbeddingModel,
		translationModel: cfg.TranslationModel,
	}
}

// EmbedText embeds a search query.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := c.models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_QUERY",
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return result.Embeddings[0].Values, nil
}

// GenerateText returns the model's text reply. An empty reply is not an error.
func (c *Client) GenerateText(ctx context.Context, systemPrompt, userPrompt, model string, temperature float32, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return responseText(resp), nil
}

const translatePrompt = `Translate the text between <text> tags from %s to %s.
Keep product names, numbers, units and bracketed citations like [1] unchanged.
Reply with JSON only: {"translation": "<translated text>"}

<text>
%s
</text>`

// TranslateText translates text between two supported locales.
func (c *Client) TranslateText(ctx context.Context, text, fromLang, toLang string) (string, error) {
	if fromLang == toLang || strings.TrimSpace(text) == "" {
		return text, nil
	}

	prompt := fmt.Sprintf(translatePrompt, lang.Name(fromLang), lang.Name(toLang), text)
	resp, err := c.models.GenerateContent(ctx, c.translationModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("GenAI translate failed: %w", err)
	}

	raw := responseText(resp)
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return decodeTranslation(raw)
}

// decodeTranslation reads {"translation": ...}, repairing sloppy JSON first.
// A reply that is plainly not JSON is taken as the translation itself.
func decodeTranslation(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		return "", fmt.Errorf("repair translation JSON: %w", err)
	}

	var out struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return "", fmt.Errorf("decode translation: %w", err)
	}
	if strings.TrimSpace(out.Translation) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(out.Translation), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
