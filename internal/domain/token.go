package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is a single entry of the upstream price feed.
type PriceRecord struct {
	Currency string
	Price    decimal.Decimal
	Date     time.Time
}

// Token is a swappable asset of a catalog snapshot.
type Token struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Icon   string          `json:"icon"`
}
