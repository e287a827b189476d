package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"commerce-answers/internal/pipeline"
)

// TelemetryStore appends one answer_telemetry row per answered request.
type TelemetryStore struct {
	db *sql.DB
}

func NewTelemetryStore(db *sql.DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

func (s *TelemetryStore) RecordAnswer(ctx context.Context, r pipeline.Record) error {
	timings, err := json.Marshal(r.Timings)
	if err != nil {
		return fmt.Errorf("marshal timings: %w", err)
	}

	var fallbackMax sql.NullFloat64
	if r.FallbackMax != nil {
		fallbackMax = sql.NullFloat64{Float64: *r.FallbackMax, Valid: true}
	}
	cited := r.CitedProducts
	if cited == nil {
		cited = []string{}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO answer_telemetry (
			request_id, shop_id, user_lang, effective_lang, branch, used_fallback,
			primary_max, fallback_max, cited_products, timings, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.RequestID, r.ShopID, r.UserLang, r.EffectiveLang, string(r.Branch), r.UsedFallback,
		r.PrimaryMax, fallbackMax, pq.Array(cited), timings, r.LatencyMs, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: answer_telemetry: %v", ErrQueryFailed, err)
	}
	return nil
}
