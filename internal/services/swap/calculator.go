package swap

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// Quote computes the conversion preview. It returns false when a token is not
// selected or the amount does not parse; that is not a validation error.
// Values keep full precision; rounding is left to renderers.
func Quote(from, to *domain.Token, amountText string) (domain.Quote, bool) {
	rate, ok := Rate(from, to)
	if !ok {
		return domain.Quote{}, false
	}
	amount, ok := ParseAmount(amountText)
	if !ok {
		return domain.Quote{}, false
	}
	return domain.Quote{Rate: rate, Output: amount.Mul(rate)}, true
}

// rateSignificantDigits is how many significant digits a rate keeps,
// however small or large the price ratio is.
const rateSignificantDigits = 24

// Rate returns how many units of to one unit of from buys.
// A zero price in the catalog is a data fault and yields false.
func Rate(from, to *domain.Token) (decimal.Decimal, bool) {
	if from == nil || to == nil || to.Price.IsZero() {
		return decimal.Zero, false
	}
	return from.Price.DivRound(to.Price, ratePlaces(from.Price, to.Price)), true
}

// ratePlaces scales the decimal places of a/b to its order of magnitude.
func ratePlaces(a, b decimal.Decimal) int32 {
	places := rateSignificantDigits - (magnitude(a) - magnitude(b)) + 1
	if floor := int32(decimal.DivisionPrecision); places < floor {
		return floor
	}
	return places
}

// magnitude is the power of ten of the leading digit of d.
func magnitude(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent() - 1
}

// USDValue is the dollar hint shown under an amount field.
func USDValue(token *domain.Token, amountText string) (decimal.Decimal, bool) {
	if token == nil {
		return decimal.Zero, false
	}
	amount, ok := ParseAmount(amountText)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(token.Price), true
}
