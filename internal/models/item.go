package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Price is the price of one listing as reported by the upstream source.
type Price struct {
	Value    decimal.Decimal `json:"value"`
	Display  string          `json:"display"`
	Currency string          `json:"currency"`
	Sort     string          `json:"sort,omitempty"`
}

// Stamp is a timestamp pair of the upstream table: Sort is used for ordering, Display is human readable.
type Stamp struct {
	Sort    string `json:"sort,omitempty"`
	Display string `json:"display"`
}

// Item is a single listing from the upstream inventory table.
type Item struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
	Price       Price  `json:"price"`
	Link        string `json:"link"`
	Available   bool   `json:"available"`
	LastStock   Stamp  `json:"lastStock"`
	Updated     Stamp  `json:"updated"`
}

// Identity names one listing for diff purposes.
// A price change yields a different Identity.
type Identity struct {
	SKU          string
	Vendor       string
	PriceDisplay string
}

// Identity returns the composite key of the item.
func (i Item) Identity() Identity {
	return Identity{SKU: i.SKU, Vendor: i.Vendor, PriceDisplay: i.Price.Display}
}

// String is used in logs.
func (id Identity) String() string {
	return strings.Join([]string{id.SKU, id.Vendor, id.PriceDisplay}, "|")
}

// Payload is the result of one upstream fetch: the raw body and the decoded listings.
type Payload struct {
	Raw       []byte
	Items     []Item
	FetchedAt time.Time
}

// View is the read-only snapshot exposed to external pollers.
type View struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Available int       `json:"available"` // tracked listings in stock
	Items     []Item    `json:"items"`
}
