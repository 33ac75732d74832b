package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceUpdate wallet state for a single symbol after a settlement.
type BalanceUpdate struct {
	Timestamp    time.Time       `json:"ts"`
	Symbol       string          `json:"symbol"`
	Balance      decimal.Decimal `json:"balance"`
	SettlementID string          `json:"settlement_id"`
}

// NewBalanceUpdate creates a new BalanceUpdate.
func NewBalanceUpdate(timestamp time.Time, symbol string, balance decimal.Decimal, settlementID string) BalanceUpdate {
	return BalanceUpdate{
		Timestamp:    timestamp,
		Symbol:       symbol,
		Balance:      balance,
		SettlementID: settlementID,
	}
}
