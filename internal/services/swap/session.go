package swap

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/internal/services/catalog"
)

// View is the state a swap form renders after an input change.
type View struct {
	Request     domain.SwapRequest
	From        *domain.Token
	To          *domain.Token
	Balance     decimal.Decimal
	Verdict     domain.Verdict
	Quote       *domain.Quote
	FromUSD     *decimal.Decimal
	ToUSD       *decimal.Decimal
	FromOptions []domain.Token
	ToOptions   []domain.Token
	CanSubmit   bool
	Settling    bool
}

// Session is the state of one swap form. Handlers call its setters on input
// events and View to recompute; nothing is recomputed implicitly.
type Session struct {
	orch *Orchestrator

	mu         sync.Mutex
	pair       domain.Pair
	amount     string
	settling   bool
	generation uint64
}

// NewSession opens an empty form backed by o.
func (o *Orchestrator) NewSession() *Session {
	return &Session{orch: o}
}

// SelectFrom picks the token to send.
func (s *Session) SelectFrom(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair.From = symbol
}

// SelectTo picks the token to receive.
func (s *Session) SelectTo(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair.To = symbol
}

// Flip reverses the swap direction, keeping the amount.
func (s *Session) Flip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = s.pair.Flip()
}

// SetAmount applies typed text through the input filter. Rejected text leaves
// the amount unchanged and returns false.
func (s *Session) SetAmount(raw string) bool {
	filtered, ok := FilterInput(raw)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amount = filtered
	return true
}

// SetMax fills the amount with the whole balance of the send token. It returns
// false when no token is selected or the balance is zero.
func (s *Session) SetMax() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair.From == "" {
		return false
	}
	balance := s.orch.ledger.Balance(s.pair.From)
	if !balance.IsPositive() {
		return false
	}
	s.amount = balance.String()
	return true
}

// Reset clears the form. A settlement still waiting is orphaned and will not
// touch the ledger.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = domain.Pair{}
	s.amount = ""
	s.settling = false
	s.generation++
}

// Request returns the current form inputs.
func (s *Session) Request() domain.SwapRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request()
}

// Settling reports whether a submission is waiting for settlement.
func (s *Session) Settling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settling
}

// View recomputes the derived form state.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	req := s.request()
	settling := s.settling
	s.mu.Unlock()

	eval, err := s.orch.Evaluate(req)
	if err != nil {
		return View{Request: req, Settling: settling}, err
	}

	v := View{
		Request:     req,
		From:        eval.Input.From,
		To:          eval.Input.To,
		Balance:     eval.Input.Balance,
		Verdict:     eval.Verdict,
		Quote:       eval.Quote,
		FromOptions: catalog.Options(eval.Tokens, req.To),
		ToOptions:   catalog.Options(eval.Tokens, req.From),
		CanSubmit:   eval.CanSubmit(settling),
		Settling:    settling,
	}
	if usd, ok := USDValue(v.From, req.Amount); ok {
		v.FromUSD = &usd
	}
	if v.Quote != nil && v.To != nil {
		usd := v.Quote.Output.Mul(v.To.Price)
		v.ToUSD = &usd
	}
	return v, nil
}

// Submit settles the current form. While a submission is settling further
// submits are rejected. On success the amount is cleared and the selections kept.
func (s *Session) Submit(ctx context.Context) (domain.Settlement, error) {
	s.mu.Lock()
	p, rejected, err := s.orch.prepare(s.request(), s.settling)
	if err != nil || p == nil {
		s.mu.Unlock()
		return rejected, err
	}
	s.settling = true
	generation := s.generation
	s.mu.Unlock()

	waitErr := s.orch.wait(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return s.orch.abandon(p), nil
	}
	s.settling = false
	if waitErr != nil {
		return s.orch.abandon(p), errors.Wrap(waitErr, "settlement interrupted")
	}

	settlement, err := s.orch.commit(p)
	if err != nil {
		return settlement, err
	}
	s.amount = ""
	return settlement, nil
}

func (s *Session) request() domain.SwapRequest {
	return domain.SwapRequest{From: s.pair.From, To: s.pair.To, Amount: s.amount}
}
