package swap

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/pkg/numfmt"
)

const (
	msgSelectFrom          = "select a token to send"
	msgSelectTo            = "select a token to receive"
	msgSameToken           = "cannot swap the same token"
	msgInvalidFormat       = "invalid amount format"
	msgNonPositive         = "amount must be greater than zero"
	msgNonPositiveOutput   = "swap output must be greater than zero"
	msgInsufficientBalance = "insufficient balance: you have %s %s"
)

// ValidationInput is everything the validator looks at.
// Balance is the ledger balance of From, zero when From is nil.
type ValidationInput struct {
	From    *domain.Token
	To      *domain.Token
	Amount  string
	Balance decimal.Decimal
}

// Validate evaluates the form rules in order and returns the first match.
// It is pure: identical inputs always yield identical verdicts.
func Validate(in ValidationInput) domain.Verdict {
	switch {
	case in.From == nil:
		return fail(domain.VerdictSelectFrom, msgSelectFrom)
	case in.To == nil:
		return fail(domain.VerdictSelectTo, msgSelectTo)
	case in.From.Symbol == in.To.Symbol:
		return fail(domain.VerdictSameToken, msgSameToken)
	case in.Amount == "":
		return domain.Verdict{Code: domain.VerdictEmpty}
	case !IsUnsignedDecimal(in.Amount):
		return fail(domain.VerdictInvalidFormat, msgInvalidFormat)
	}

	amount, ok := ParseAmount(in.Amount)
	if !ok || !amount.IsPositive() {
		return fail(domain.VerdictNonPositive, msgNonPositive)
	}

	if amount.GreaterThan(in.Balance) {
		return domain.Verdict{
			Code:    domain.VerdictInsufficientBalance,
			Warning: fmt.Sprintf(msgInsufficientBalance, numfmt.Plain(in.Balance), in.From.Symbol),
		}
	}

	return domain.Verdict{IsValid: true, Code: domain.VerdictOK}
}

// CanSubmit gates the submit action: a valid verdict, a positive amount and
// no settlement in flight.
func CanSubmit(in ValidationInput, verdict domain.Verdict, settling bool) bool {
	if !verdict.IsValid || settling {
		return false
	}
	amount, ok := ParseAmount(in.Amount)
	return ok && amount.IsPositive()
}

func fail(code domain.VerdictCode, msg string) domain.Verdict {
	return domain.Verdict{Code: code, Error: msg}
}
