package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapRequest is one submission attempt, amount kept as typed.
type SwapRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Pair returns the direction of the request.
func (r SwapRequest) Pair() Pair {
	return Pair{From: r.From, To: r.To}
}

// Quote is the conversion preview for a pair of tokens.
type Quote struct {
	Rate   decimal.Decimal `json:"rate"`
	Output decimal.Decimal `json:"output"`
}

// SettlementStatus is the terminal state of a submission.
type SettlementStatus string

const (
	// SettlementSettled both ledger legs were applied.
	SettlementSettled SettlementStatus = "settled"
	// SettlementRejected the form was not submittable, nothing happened.
	SettlementRejected SettlementStatus = "rejected"
	// SettlementFailed the ledger refused the debit, balances untouched.
	SettlementFailed SettlementStatus = "failed"
	// SettlementAbandoned the form was reset while settling, balances untouched.
	SettlementAbandoned SettlementStatus = "abandoned"
)

// Settlement describes what a submission did.
type Settlement struct {
	ID        string           `json:"id,omitempty"`
	Status    SettlementStatus `json:"status"`
	Pair      string           `json:"pair"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Amount    decimal.Decimal  `json:"amount"`
	Output    decimal.Decimal  `json:"output"`
	Rate      decimal.Decimal  `json:"rate"`
	Verdict   Verdict          `json:"verdict"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"ts"`
}

// Settled reports whether the ledger was mutated.
func (s Settlement) Settled() bool {
	return s.Status == SettlementSettled
}

// SettlementRecord bundles a journaled settlement with its log index.
type SettlementRecord struct {
	Index      uint64
	Settlement Settlement
}
