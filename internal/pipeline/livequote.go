package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

const end = `(?:$|[^\p{L}])`

var priceStockPattern = lang.Prefixed(
	`price`, `cost`, `how much (?:is|are) (?:it|this|that|they|these|those)`+end, `in stock`, `stock`,
	`available to buy`, `availability`, `sold out`, `discount`,
	`fiyat`, `ücret`, `kaç para`, `kaça`+end, `ne kadar(?:a)?\s+(?:tutar|para)`, `stok`, `indirim`, `mevcut mu`, `tükendi`,
	`ár(?:a|ak|at|ért|ban)?`+end, `mennyibe`, `mennyi(?:be)? kerül`, `készlet`, `raktáron`, `kapható`, `akció`,
)

// IsPriceOrStockQuestion reports whether question asks for live price or stock data.
func IsPriceOrStockQuestion(question string, code string) bool {
	return priceStockPattern.MatchString(lang.Lower(question, code))
}

var (
	errNoCredentials = errors.New("shop has no storefront credentials")
	errNoExternalIDs = errors.New("no cited product is linked to the storefront")
	errNoQuotes      = errors.New("storefront returned no quotes")
)

// liveQuote looks up live price and stock for the cited products and formats
// them in the effective language. ok is false whenever the data could not be
// verified; callers then answer with the clarify message.
func (p *Pipeline) liveQuote(ctx context.Context, diag *Diagnostics, shopID string) (string, []string, bool) {
	localIDs := snippetProductIDs(diag.Snippets)

	var (
		quotes []models.LiveProductQuote
		creds  *models.ShopCredentials
		byExt  map[string]string
	)
	err := p.run(ctx, diag, StageLiveFetch, p.config.Timeouts.LiveQuote, ErrLiveQuoteFailed, func(ctx context.Context) error {
		var err error
		creds, err = p.directory.GetShopCredentials(ctx, shopID)
		if err != nil {
			return err
		}
		if creds == nil || creds.ShopDomain == "" || creds.AccessToken == "" {
			return errNoCredentials
		}
		if len(localIDs) == 0 {
			return errNoExternalIDs
		}

		external, err := p.directory.GetExternalIDs(ctx, shopID, localIDs)
		if err != nil {
			return err
		}
		byExt = make(map[string]string, len(external))
		var externalIDs []string
		for _, id := range localIDs {
			ext := external[id]
			if ext == "" {
				continue
			}
			byExt[ext] = id
			externalIDs = append(externalIDs, ext)
			if len(externalIDs) == p.config.MaxProducts {
				break
			}
		}
		if len(externalIDs) == 0 {
			return errNoExternalIDs
		}

		quotes, err = p.live.FetchLiveProductQuotes(ctx, creds.ShopDomain, creds.AccessToken, externalIDs)
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			return errNoQuotes
		}
		return nil
	})
	if err != nil {
		diag.LiveQuoteOutcome = liveOutcome(err)
		metrics.LiveQuotes.WithLabelValues(diag.LiveQuoteOutcome).Inc()
		p.log.Warn("Live quote unavailable", map[string]interface{}{
			"requestId": diag.RequestID,
			"shopId":    shopID,
			"outcome":   diag.LiveQuoteOutcome,
			"error":     err.Error(),
		})
		return "", nil, false
	}

	cited := make([]string, 0, len(quotes))
	for _, q := range quotes {
		if id, ok := byExt[q.ID]; ok {
			cited = append(cited, id)
		}
	}

	diag.LiveQuoteOutcome = "ok"
	metrics.LiveQuotes.WithLabelValues(diag.LiveQuoteOutcome).Inc()
	text := formatQuotes(quotes, creds.CurrencyCode, diag.EffectiveLang, p.config.MaxProducts, p.config.MaxVariants, p.now())
	return text, cited, true
}

func liveOutcome(err error) string {
	switch {
	case errors.Is(err, errNoCredentials):
		return "no_credentials"
	case errors.Is(err, errNoExternalIDs):
		return "no_external_ids"
	case errors.Is(err, errNoQuotes):
		return "empty"
	case errors.Is(err, ErrStageTimeout):
		return "timeout"
	default:
		return "fetch_failed"
	}
}

const defaultVariantTitle = "Default Title"

// formatQuotes renders at most maxProducts products with maxVariants variants each.
func formatQuotes(quotes []models.LiveProductQuote, currency, code string, maxProducts, maxVariants int, checkedAt time.Time) string {
	m := messagesFor(code)

	var b strings.Builder
	for i, q := range quotes {
		if i == maxProducts {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(q.Title))
		b.WriteString(":")

		for j, v := range q.Variants {
			if j == maxVariants {
				break
			}
			b.WriteString("\n- ")
			if t := strings.TrimSpace(v.Title); t != "" && t != defaultVariantTitle {
				b.WriteString(t)
				b.WriteString(": ")
			}
			b.WriteString(formatPrice(v.Price, currency))
			b.WriteString(", ")
			b.WriteString(stockLine(m, v.InventoryQuantity))
		}
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf(m.checkedAt, checkedAt.UTC().Format("2006-01-02 15:04 UTC")))
	return b.String()
}

func formatPrice(price, currency string) string {
	amount := strings.TrimSpace(price)
	if d, err := decimal.NewFromString(amount); err == nil {
		amount = d.StringFixed(2)
	}
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

func stockLine(m messages, qty *int) string {
	switch {
	case qty == nil:
		return m.stockUnk
	case *qty > 0:
		return fmt.Sprintf(m.inStock, *qty)
	default:
		return m.outOfStock
	}
}
