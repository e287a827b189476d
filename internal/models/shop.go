package models

import "time"

type ShopSettings struct {
	ShopID            string    `json:"shopId"`
	DefaultSourceLang string    `json:"defaultSourceLang"`
	CreatedAt         time.Time `json:"createdAt"`
}

type ProductLocalization struct {
	ProductID   string `json:"productId"`
	Lang        string `json:"lang"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ShopCredentials are the storefront API credentials of a connected shop.
type ShopCredentials struct {
	ShopDomain   string `json:"shopDomain"`
	AccessToken  string `json:"-"`
	CurrencyCode string `json:"currencyCode"`
}

type LiveVariant struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	InventoryQuantity *int   `json:"inventoryQuantity"`
}

type LiveProductQuote struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Variants []LiveVariant `json:"variants"`
}
