package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"commerce-answers/internal/models"
)

// CatalogStore reads localized product content, storefront credentials and
// fact snapshots.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// GetProductLocalizations returns the rows of productIDs localized in lang, keyed by product.
func (s *CatalogStore) GetProductLocalizations(ctx context.Context, shopID string, productIDs []string, lang string) (map[string]models.ProductLocalization, error) {
	out := make(map[string]models.ProductLocalization, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, lang, title, COALESCE(description, '')
		FROM product_localizations
		WHERE shop_id = $1 AND lang = $2 AND product_id = ANY($3)`,
		shopID, lang, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: product_localizations: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var loc models.ProductLocalization
		if err := rows.Scan(&loc.ProductID, &loc.Lang, &loc.Title, &loc.Description); err != nil {
			return nil, fmt.Errorf("%w: product_localizations: %v", ErrQueryFailed, err)
		}
		out[loc.ProductID] = loc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: product_localizations: %v", ErrQueryFailed, err)
	}
	return out, nil
}

// GetShopCredentials returns nil, nil when the shop has no connected storefront.
func (s *CatalogStore) GetShopCredentials(ctx context.Context, shopID string) (*models.ShopCredentials, error) {
	var creds models.ShopCredentials
	var currency sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT shop_domain, access_token, currency_code FROM shop_credentials WHERE shop_id = $1`,
		shopID,
	).Scan(&creds.ShopDomain, &creds.AccessToken, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: shop_credentials: %v", ErrQueryFailed, err)
	}
	if creds.ShopDomain == "" || creds.AccessToken == "" {
		return nil, nil
	}
	creds.CurrencyCode = currency.String
	return &creds, nil
}

// GetExternalIDs maps internal product IDs to storefront IDs. Products without
// an external ID are absent from the result.
func (s *CatalogStore) GetExternalIDs(ctx context.Context, shopID string, productIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id
		FROM products
		WHERE shop_id = $1 AND id = ANY($2) AND external_id IS NOT NULL AND external_id <> ''`,
		shopID, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: products: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, external string
		if err := rows.Scan(&id, &external); err != nil {
			return nil, fmt.Errorf("%w: products: %v", ErrQueryFailed, err)
		}
		out[id] = external
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: products: %v", ErrQueryFailed, err)
	}
	return out, nil
}

// GetFactSnapshots loads the curated fact snapshots of productIDs, in the order requested.
func (s *CatalogStore) GetFactSnapshots(ctx context.Context, shopID string, productIDs []string) ([]models.ProductFactSnapshot, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, facts, evidence
		FROM product_fact_snapshots
		WHERE shop_id = $1 AND product_id = ANY($2)`,
		shopID, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: product_fact_snapshots: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	byID := make(map[string]models.ProductFactSnapshot, len(productIDs))
	for rows.Next() {
		var snap models.ProductFactSnapshot
		var name sql.NullString
		var facts, evidence []byte
		if err := rows.Scan(&snap.ProductID, &name, &facts, &evidence); err != nil {
			return nil, fmt.Errorf("%w: product_fact_snapshots: %v", ErrQueryFailed, err)
		}
		snap.ProductName = name.String
		if err := json.Unmarshal(facts, &snap.Facts); err != nil {
			return nil, fmt.Errorf("%w: facts of %s: %v", ErrQueryFailed, snap.ProductID, err)
		}
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &snap.Evidence); err != nil {
				return nil, fmt.Errorf("%w: evidence of %s: %v", ErrQueryFailed, snap.ProductID, err)
			}
		}
		byID[snap.ProductID] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: product_fact_snapshots: %v", ErrQueryFailed, err)
	}

	out := make([]models.ProductFactSnapshot, 0, len(byID))
	for _, id := range productIDs {
		if snap, ok := byID[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}
