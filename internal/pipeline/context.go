package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"commerce-answers/internal/common/textutil"
	"commerce-answers/internal/models"
)

// Snippet is one numbered piece of grounding context handed to the model.
type Snippet struct {
	Index      int     `json:"index"`
	ProductID  string  `json:"productId"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Similarity float64 `json:"similarity"`
	Lang       string  `json:"lang"`
}

// rankRows sorts by similarity, keeps the best row per product and caps the result.
func rankRows(rows []models.RetrievalRow, max int) []models.RetrievalRow {
	sorted := make([]models.RetrievalRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]models.RetrievalRow, 0, len(sorted))
	for _, r := range sorted {
		if r.ProductID == "" {
			continue
		}
		if _, dup := seen[r.ProductID]; dup {
			continue
		}
		seen[r.ProductID] = struct{}{}
		out = append(out, r)
		if len(out) == max {
			break
		}
	}
	return out
}

// buildSnippets localizes ranked rows into code. Each product is fetched on its
// own goroutine; a missing or failed localization falls back to the row text.
func (p *Pipeline) buildSnippets(ctx context.Context, shopID, code string, rows []models.RetrievalRow) []Snippet {
	ranked := rankRows(rows, p.config.MaxSnippets)
	if len(ranked) == 0 {
		return nil
	}

	snippets := make([]Snippet, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.config.LocalizationConcurrency))

	for i, row := range ranked {
		g.Go(func() error {
			title, description := row.Title, row.Description

			locs, err := p.catalog.GetProductLocalizations(gctx, shopID, []string{row.ProductID}, code)
			if err != nil {
				p.log.Warn("Localization lookup failed, using indexed text", map[string]interface{}{
					"shopId":    shopID,
					"productId": row.ProductID,
					"lang":      code,
					"error":     err.Error(),
				})
			} else if loc, ok := locs[row.ProductID]; ok {
				if strings.TrimSpace(loc.Title) != "" {
					title = loc.Title
				}
				if strings.TrimSpace(loc.Description) != "" {
					description = loc.Description
				}
			}

			excerpt := textutil.StripHTML(description)
			if excerpt == "" {
				excerpt = textutil.CollapseSpace(row.Chunk)
			}

			snippets[i] = Snippet{
				Index:      i + 1,
				ProductID:  row.ProductID,
				Title:      textutil.CollapseSpace(title),
				Excerpt:    textutil.Truncate(excerpt, p.config.ExcerptChars),
				Similarity: row.Similarity,
				Lang:       row.Lang,
			}
			return nil
		})
	}
	_ = g.Wait()

	return snippets
}

func snippetProductIDs(snippets []Snippet) []string {
	ids := make([]string, 0, len(snippets))
	for _, s := range snippets {
		ids = append(ids, s.ProductID)
	}
	return ids
}

func formatSnippets(snippets []Snippet) string {
	var b strings.Builder
	for _, s := range snippets {
		fmt.Fprintf(&b, "[%d] %s (similarity %.2f, lang %s)\n%s\n\n", s.Index, s.Title, s.Similarity, s.Lang, s.Excerpt)
	}
	return strings.TrimRight(b.String(), "\n")
}
