package swap

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

var (
	usd = &domain.Token{Symbol: "USD", Price: decimal.NewFromInt(1)}
	eth = &domain.Token{Symbol: "ETH", Price: decimal.NewFromInt(2000)}
)

func input(from, to *domain.Token, amount string, balance int64) ValidationInput {
	return ValidationInput{From: from, To: to, Amount: amount, Balance: decimal.NewFromInt(balance)}
}

func TestValidate_RuleOrder(t *testing.T) {
	cases := []struct {
		name    string
		in      ValidationInput
		code    domain.VerdictCode
		error   string
		warning string
	}{
		{"no tokens, bad amount", input(nil, nil, "abc", 0), domain.VerdictSelectFrom, "select a token to send", ""},
		{"no from", input(nil, eth, "1", 0), domain.VerdictSelectFrom, "select a token to send", ""},
		{"no to", input(usd, nil, "1", 100), domain.VerdictSelectTo, "select a token to receive", ""},
		{"same token beats format", input(eth, eth, "12.34.56", 100), domain.VerdictSameToken, "cannot swap the same token", ""},
		{"empty amount is neutral", input(usd, eth, "", 100), domain.VerdictEmpty, "", ""},
		{"bad format", input(usd, eth, "1a", 100), domain.VerdictInvalidFormat, "invalid amount format", ""},
		{"zero", input(usd, eth, "0", 100), domain.VerdictNonPositive, "amount must be greater than zero", ""},
		{"zeros with point", input(usd, eth, "0.000", 100), domain.VerdictNonPositive, "amount must be greater than zero", ""},
		{"bare point", input(usd, eth, ".", 100), domain.VerdictNonPositive, "amount must be greater than zero", ""},
		{"over balance", input(usd, eth, "100.5", 100), domain.VerdictInsufficientBalance, "", "insufficient balance: you have 100 USD"},
		{"exactly balance", input(usd, eth, "100", 100), domain.VerdictOK, "", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := Validate(c.in)
			assert.Equal(t, c.code, v.Code)
			assert.Equal(t, c.error, v.Error)
			assert.Equal(t, c.warning, v.Warning)
			assert.Equal(t, c.code == domain.VerdictOK, v.IsValid)
			assert.False(t, v.Error != "" && v.Warning != "", "at most one message")
		})
	}
}

func TestValidate_ScenarioA(t *testing.T) {
	v := Validate(input(usd, eth, "50", 100))
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Message())
}

func TestValidate_ScenarioB(t *testing.T) {
	v := Validate(input(usd, eth, "50", 10))
	assert.False(t, v.IsValid)
	assert.Empty(t, v.Error)
	assert.Contains(t, v.Warning, "insufficient balance")
	assert.Contains(t, v.Warning, "10")
	assert.Equal(t, v.Warning, v.Message())
}

func TestValidate_ScenarioC(t *testing.T) {
	for _, amount := range []string{"", "1", "abc", "99999"} {
		v := Validate(input(eth, eth, amount, 100))
		assert.Equal(t, "cannot swap the same token", v.Error, amount)
	}
}

func TestValidate_ScenarioD(t *testing.T) {
	v := Validate(input(usd, eth, "12.34.56", 100))
	assert.Equal(t, "invalid amount format", v.Error)
	assert.False(t, v.IsValid)
}

func TestValidate_WarningRoundsBalance(t *testing.T) {
	in := ValidationInput{From: usd, To: eth, Amount: "1", Balance: decimal.RequireFromString("0.12345678")}
	assert.Equal(t, "insufficient balance: you have 0.123457 USD", Validate(in).Warning)
}

func TestValidate_ValidAmountsWithinBalance(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	balance := decimal.NewFromInt(1000)
	for i := 0; i < 500; i++ {
		whole := rnd.Intn(1000)
		frac := rnd.Intn(1000000)
		text := fmt.Sprintf("%d.%06d", whole, frac)
		amount := decimal.RequireFromString(text)
		if !amount.IsPositive() {
			continue
		}
		v := Validate(ValidationInput{From: usd, To: eth, Amount: text, Balance: balance})
		assert.True(t, v.IsValid, text)
	}
}

func TestValidate_PatternViolationsAreFormatErrors(t *testing.T) {
	for _, text := range []string{"1.2.3", "abc", "-5", "1,5", "1e3", " 1", "1 ", "$5"} {
		assert.Equal(t, domain.VerdictInvalidFormat, Validate(input(usd, eth, text, 100)).Code, text)
		assert.Equal(t, domain.VerdictSelectFrom, Validate(input(nil, eth, text, 100)).Code, text)
		assert.Equal(t, domain.VerdictSelectTo, Validate(input(usd, nil, text, 100)).Code, text)
		assert.Equal(t, domain.VerdictSameToken, Validate(input(usd, usd, text, 100)).Code, text)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	for _, in := range []ValidationInput{
		input(usd, eth, "50", 100),
		input(usd, eth, "50", 10),
		input(usd, eth, "x", 10),
		input(nil, nil, "", 0),
	} {
		assert.Equal(t, Validate(in), Validate(in))
	}
}

func TestCanSubmit(t *testing.T) {
	ok := input(usd, eth, "50", 100)
	assert.True(t, CanSubmit(ok, Validate(ok), false))
	assert.False(t, CanSubmit(ok, Validate(ok), true), "settling blocks submit")

	short := input(usd, eth, "50", 10)
	assert.False(t, CanSubmit(short, Validate(short), false))

	empty := input(usd, eth, "", 100)
	assert.False(t, CanSubmit(empty, Validate(empty), false))

	forged := domain.Verdict{IsValid: true}
	assert.False(t, CanSubmit(input(usd, eth, "0", 100), forged, false), "amount is re-checked")
}
