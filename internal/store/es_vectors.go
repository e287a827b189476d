package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"commerce-answers/internal/models"
)

// ESVectorSearch runs kNN search against an index of product chunks. The
// embedding field must be mapped with cosine similarity.
type ESVectorSearch struct {
	client *elasticsearch.Client
	index  string
}

func NewESVectorSearch(client *elasticsearch.Client, index string) *ESVectorSearch {
	return &ESVectorSearch{client: client, index: index}
}

type chunkSource struct {
	ProductID   string `json:"product_id"`
	Lang        string `json:"lang"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Chunk       string `json:"chunk"`
}

type knnResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64     `json:"_score"`
			Source chunkSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildKNNQuery(shopID, lang string, embedding []float32, k int) map[string]interface{} {
	return map[string]interface{}{
		"size": k,
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   embedding,
			"k":              k,
			"num_candidates": max(k*10, 100),
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{
					"filter": []map[string]interface{}{
						{"term": map[string]interface{}{"shop_id": shopID}},
						{"term": map[string]interface{}{"lang": lang}},
					},
				},
			},
		},
		"_source": []string{"product_id", "lang", "title", "description", "chunk"},
	}
}

func (s *ESVectorSearch) SearchByLanguage(ctx context.Context, shopID, lang string, embedding []float32, matchCount int) ([]models.RetrievalRow, error) {
	if matchCount <= 0 {
		return []models.RetrievalRow{}, nil
	}

	body, err := json.Marshal(buildKNNQuery(shopID, lang, embedding, matchCount))
	if err != nil {
		return nil, fmt.Errorf("marshal knn query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %v", ErrQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: knn search: %s", ErrQueryFailed, res.String())
	}

	var parsed knnResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode knn response: %v", ErrQueryFailed, err)
	}

	out := make([]models.RetrievalRow, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, models.RetrievalRow{
			ProductID: hit.Source.ProductID,
			// cosine _score is (1 + cos) / 2
			Similarity:  2*hit.Score - 1,
			Lang:        hit.Source.Lang,
			Title:       hit.Source.Title,
			Description: hit.Source.Description,
			Chunk:       hit.Source.Chunk,
		})
	}
	return out, nil
}
