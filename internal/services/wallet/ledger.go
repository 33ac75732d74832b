package wallet

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Ledger is the in-memory wallet shared by every swap of the process.
// Balances never go negative: withdrawals beyond the balance are rejected, not clamped.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	logger   *zap.Logger
}

// NewLedger creates a ledger seeded with the given starting balances.
// Negative seeds are treated as zero.
func NewLedger(seed map[string]decimal.Decimal, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	balances := make(map[string]decimal.Decimal, len(seed))
	for symbol, balance := range seed {
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		balances[symbol] = balance
	}

	return &Ledger{balances: balances, logger: logger}
}

// Balance returns the balance of symbol, zero for unknown symbols.
func (l *Ledger) Balance(symbol string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[symbol]
}

// Balances returns a copy of all balances.
func (l *Ledger) Balances() map[string]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(l.balances))
	for symbol, balance := range l.balances {
		out[symbol] = balance
	}
	return out
}

// Deposit credits amount to symbol, creating the entry if absent.
func (l *Ledger) Deposit(symbol string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "deposit %s %s", amount.String(), symbol)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.deposit(symbol, amount)
	return nil
}

// Withdraw debits amount from symbol.
func (l *Ledger) Withdraw(symbol string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "withdraw %s %s", amount.String(), symbol)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.withdraw(symbol, amount)
}

// Transfer debits one symbol and credits another as a single unit:
// either both legs apply or neither does.
func (l *Ledger) Transfer(from string, debit decimal.Decimal, to string, credit decimal.Decimal) error {
	if !debit.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "transfer debit %s %s", debit.String(), from)
	}
	if !credit.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "transfer credit %s %s", credit.String(), to)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.withdraw(from, debit); err != nil {
		return err
	}
	l.deposit(to, credit)

	l.logger.Info("ledger transfer",
		zap.String("from", from),
		zap.String("debit", debit.String()),
		zap.String("to", to),
		zap.String("credit", credit.String()))
	return nil
}

func (l *Ledger) deposit(symbol string, amount decimal.Decimal) {
	l.balances[symbol] = l.balances[symbol].Add(amount)
}

func (l *Ledger) withdraw(symbol string, amount decimal.Decimal) error {
	balance := l.balances[symbol]
	if balance.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "insufficient %s balance: have %s need %s",
			symbol, balance.String(), amount.String())
	}
	l.balances[symbol] = balance.Sub(amount)
	return nil
}
