// Package shopify fetches live product price and stock from the Shopify Admin GraphQL API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"commerce-answers/internal/common/config"
	commonhttp "commerce-answers/internal/common/http"
	"commerce-answers/internal/models"
)

var (
	ErrUnauthorized = errors.New("SHOPIFY_UNAUTHORIZED")
	ErrGraphQL      = errors.New("SHOPIFY_GRAPHQL_ERROR")
	ErrHTTPStatus   = errors.New("SHOPIFY_HTTP_STATUS")
)

const productGIDPrefix = "gid://shopify/Product/"

const quotesQuery = `query LiveQuotes($ids: [ID!]!, $variants: Int!) {
  nodes(ids: $ids) {
    ... on Product {
      id
      title
      variants(first: $variants) {
        nodes { id title price inventoryQuantity }
      }
    }
  }
}`

type Client struct {
	http        *commonhttp.Client
	apiVersion  string
	maxVariants int
	// baseURL replaces https://<shop domain> when set.
	baseURL string
}

func NewClient(cfg config.CommerceConfig) *Client {
	return &Client{
		http:        commonhttp.NewClient(config.GetDuration(cfg.Shopify.Timeout), cfg.Shopify.MaxRetries),
		apiVersion:  cfg.Shopify.APIVersion,
		maxVariants: cfg.MaxVariants,
	}
}

// WithBaseURL points the client at a fixed host, mostly for tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Nodes []*productNode `json:"nodes"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type productNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Variants struct {
		Nodes []struct {
			ID                string `json:"id"`
			Title             string `json:"title"`
			Price             string `json:"price"`
			InventoryQuantity *int   `json:"inventoryQuantity"`
		} `json:"nodes"`
	} `json:"variants"`
}

// FetchLiveProductQuotes returns quotes in the order of externalIDs. Products
// the shop no longer has are skipped. Quote IDs echo the caller's external IDs.
func (c *Client) FetchLiveProductQuotes(ctx context.Context, shopDomain, accessToken string, externalIDs []string) ([]models.LiveProductQuote, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	gids := make([]string, len(externalIDs))
	requested := make(map[string]string, len(externalIDs))
	for i, id := range externalIDs {
		gids[i] = toGID(id)
		requested[gids[i]] = id
	}

	payload, err := json.Marshal(graphQLRequest{
		Query: quotesQuery,
		Variables: map[string]interface{}{
			"ids":      gids,
			"variants": max(1, c.maxVariants),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	endpoint := c.endpoint(shopDomain)
	resp, err := c.http.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Shopify-Access-Token", accessToken)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrHTTPStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrGraphQL, out.Errors[0].Message)
	}

	quotes := make([]models.LiveProductQuote, 0, len(out.Data.Nodes))
	for _, node := range out.Data.Nodes {
		if node == nil || node.ID == "" {
			continue
		}
		id, ok := requested[node.ID]
		if !ok {
			id = node.ID
		}
		q := models.LiveProductQuote{ID: id, Title: node.Title}
		for _, v := range node.Variants.Nodes {
			q.Variants = append(q.Variants, models.LiveVariant{
				ID:                v.ID,
				Title:             v.Title,
				Price:             v.Price,
				InventoryQuantity: v.InventoryQuantity,
			})
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (c *Client) endpoint(shopDomain string) string {
	base := c.baseURL
	if base == "" {
		domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(shopDomain, "https://"), "http://"), "/")
		base = "https://" + domain
	}
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", base, c.apiVersion)
}

func toGID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return productGIDPrefix + id
}
