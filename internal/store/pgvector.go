package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"commerce-answers/internal/models"
)

// PGVectorSearch runs cosine similarity search over product_chunks.
type PGVectorSearch struct {
	db *sql.DB
}

func NewPGVectorSearch(db *sql.DB) *PGVectorSearch {
	return &PGVectorSearch{db: db}
}

const searchByLanguageSQL = `
	SELECT c.product_id, 1 - (c.embedding <=> $3) AS similarity, c.lang,
	       COALESCE(p.title, ''), COALESCE(p.description, ''), c.chunk
	FROM product_chunks c
	JOIN products p ON p.id = c.product_id
	WHERE c.shop_id = $1 AND c.lang = $2
	ORDER BY c.embedding <=> $3
	LIMIT $4`

func (s *PGVectorSearch) SearchByLanguage(ctx context.Context, shopID, lang string, embedding []float32, matchCount int) ([]models.RetrievalRow, error) {
	if matchCount <= 0 {
		return []models.RetrievalRow{}, nil
	}

	rows, err := s.db.QueryContext(ctx, searchByLanguageSQL,
		shopID, lang, pgvector.NewVector(embedding), matchCount)
	if err != nil {
		return nil, fmt.Errorf("%w: product_chunks: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]models.RetrievalRow, 0, matchCount)
	for rows.Next() {
		var r models.RetrievalRow
		if err := rows.Scan(&r.ProductID, &r.Similarity, &r.Lang, &r.Title, &r.Description, &r.Chunk); err != nil {
			return nil, fmt.Errorf("%w: product_chunks: %v", ErrQueryFailed, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: product_chunks: %v", ErrQueryFailed, err)
	}
	return out, nil
}
