package swap

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/internal/services/catalog"
)

const (
	defaultSettlementDelay = 2 * time.Second
	displayPlaces          = 6
)

// ErrSettlementFailed is returned when the ledger refuses a swap at execution time.
var ErrSettlementFailed = errors.New("swap settlement failed")

// Ledger is the wallet the orchestrator settles against.
type Ledger interface {
	Balance(symbol string) decimal.Decimal
	Transfer(from string, debit decimal.Decimal, to string, credit decimal.Decimal) error
}

type catalogReader interface {
	Snapshot() (catalog.Snapshot, error)
}

type settlementJournal interface {
	Save(settlement domain.Settlement) error
}

type balancePublisher interface {
	Publish(update domain.BalanceUpdate)
}

type settlementRecorder interface {
	SwapFinished(status domain.SettlementStatus, elapsed time.Duration)
}

// Evaluation is the derived state of a swap form for one set of inputs.
type Evaluation struct {
	Tokens  []domain.Token
	Input   ValidationInput
	Verdict domain.Verdict
	Quote   *domain.Quote
}

// CanSubmit reports whether the evaluated form may be submitted.
func (e Evaluation) CanSubmit(settling bool) bool {
	return CanSubmit(e.Input, e.Verdict, settling)
}

// Orchestrator validates, quotes and settles swaps.
type Orchestrator struct {
	ledger    Ledger
	catalog   catalogReader
	journal   settlementJournal
	publisher balancePublisher
	metrics   settlementRecorder
	logger    *zap.Logger

	delay  time.Duration
	jitter time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	newID  func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSettlementDelay sets the simulated settlement latency: delay plus a random
// extra of up to jitter.
func WithSettlementDelay(delay, jitter time.Duration) Option {
	return func(o *Orchestrator) {
		o.delay = delay
		o.jitter = jitter
	}
}

// WithSleeper replaces the settlement wait.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithJournal records every settled swap.
func WithJournal(j settlementJournal) Option {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// WithPublisher announces balance changes after each settled swap.
func WithPublisher(p balancePublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithRecorder reports the outcome of every submission.
func WithRecorder(m settlementRecorder) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator settling against ledger with prices from cat.
func NewOrchestrator(ledger Ledger, cat catalogReader, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if ledger == nil {
		return nil, errors.New("ledger is required for Orchestrator")
	}
	if cat == nil {
		return nil, errors.New("catalog is required for Orchestrator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		ledger:  ledger,
		catalog: cat,
		logger:  logger,
		delay:   defaultSettlementDelay,
		sleep:   sleepCtx,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Evaluate resolves the request against the current catalog and ledger and
// recomputes verdict and quote. It fails only when the catalog is unavailable.
func (o *Orchestrator) Evaluate(req domain.SwapRequest) (Evaluation, error) {
	snap, err := o.catalog.Snapshot()
	if err != nil {
		return Evaluation{}, err
	}

	in := ValidationInput{Amount: req.Amount}
	if t, ok := catalog.Find(snap.Tokens, req.From); ok {
		in.From = &t
		in.Balance = o.ledger.Balance(t.Symbol)
	}
	if t, ok := catalog.Find(snap.Tokens, req.To); ok {
		in.To = &t
	}

	eval := Evaluation{Tokens: snap.Tokens, Input: in, Verdict: Validate(in)}
	if q, ok := Quote(in.From, in.To, req.Amount); ok {
		eval.Quote = &q
	}
	return eval, nil
}

// Submit validates req against current state, waits out the settlement delay
// and applies the swap to the ledger. A request that is not submittable is
// returned as a rejected settlement with a nil error.
func (o *Orchestrator) Submit(ctx context.Context, req domain.SwapRequest) (domain.Settlement, error) {
	p, rejected, err := o.prepare(req, false)
	if err != nil || p == nil {
		return rejected, err
	}
	if err := o.wait(ctx); err != nil {
		return o.abandon(p), errors.Wrap(err, "settlement interrupted")
	}
	return o.commit(p)
}

// pending is a submission that passed validation, with its quote frozen.
type pending struct {
	req     domain.SwapRequest
	from    domain.Token
	to      domain.Token
	amount  decimal.Decimal
	quote   domain.Quote
	verdict domain.Verdict
	started time.Time
}

// prepare runs the submit gate. It returns a pending swap, or a rejected settlement.
func (o *Orchestrator) prepare(req domain.SwapRequest, settling bool) (*pending, domain.Settlement, error) {
	started := o.now()
	eval, err := o.Evaluate(req)
	if err != nil {
		s := o.settlement(req, domain.SettlementRejected, domain.Verdict{})
		o.record(s.Status, started)
		return nil, s, err
	}
	if !eval.CanSubmit(settling) || eval.Quote == nil {
		s := o.settlement(req, domain.SettlementRejected, eval.Verdict)
		o.record(s.Status, started)
		o.logger.Debug("swap rejected",
			zap.String("pair", req.Pair().String()),
			zap.String("code", string(eval.Verdict.Code)),
			zap.Bool("settling", settling))
		return nil, s, nil
	}
	if !eval.Quote.Output.IsPositive() {
		// nothing would be credited
		s := o.settlement(req, domain.SettlementRejected, domain.Verdict{
			Code:  domain.VerdictNonPositive,
			Error: msgNonPositiveOutput,
		})
		o.record(s.Status, started)
		o.logger.Debug("swap rejected",
			zap.String("pair", req.Pair().String()),
			zap.String("code", string(s.Verdict.Code)),
			zap.String("output", eval.Quote.Output.String()))
		return nil, s, nil
	}

	amount, _ := ParseAmount(req.Amount)
	return &pending{
		req:     req,
		from:    *eval.Input.From,
		to:      *eval.Input.To,
		amount:  amount,
		quote:   *eval.Quote,
		verdict: eval.Verdict,
		started: started,
	}, domain.Settlement{}, nil
}

func (o *Orchestrator) wait(ctx context.Context) error {
	d := o.delay
	if o.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(o.jitter)))
	}
	return o.sleep(ctx, d)
}

// commit applies both ledger legs of p as a single transfer.
func (o *Orchestrator) commit(p *pending) (domain.Settlement, error) {
	s := o.settlement(p.req, domain.SettlementFailed, p.verdict)
	s.Amount = p.amount
	s.Output = p.quote.Output
	s.Rate = p.quote.Rate

	if err := o.ledger.Transfer(p.from.Symbol, p.amount, p.to.Symbol, p.quote.Output); err != nil {
		o.record(s.Status, p.started)
		o.logger.Warn("swap settlement failed",
			zap.String("pair", s.Pair),
			zap.String("amount", p.amount.String()),
			zap.Error(err))
		s.Message = "swap failed, please try again"
		return s, fmt.Errorf("%w: %w", ErrSettlementFailed, err)
	}

	s.ID = o.newID()
	s.Status = domain.SettlementSettled
	s.Message = fmt.Sprintf("swapped %s %s for %s %s",
		p.amount.String(), p.from.Symbol, p.quote.Output.Round(displayPlaces).String(), p.to.Symbol)

	o.logger.Info("swap settled",
		zap.String("id", s.ID),
		zap.String("pair", s.Pair),
		zap.String("amount", s.Amount.String()),
		zap.String("output", s.Output.String()),
		zap.String("rate", s.Rate.String()))

	if o.journal != nil {
		if err := o.journal.Save(s); err != nil {
			o.logger.Warn("failed to journal settlement", zap.String("id", s.ID), zap.Error(err))
		}
	}
	if o.publisher != nil {
		for _, symbol := range []string{p.from.Symbol, p.to.Symbol} {
			o.publisher.Publish(domain.NewBalanceUpdate(s.Timestamp, symbol, o.ledger.Balance(symbol), s.ID))
		}
	}
	o.record(s.Status, p.started)
	return s, nil
}

func (o *Orchestrator) abandon(p *pending) domain.Settlement {
	s := o.settlement(p.req, domain.SettlementAbandoned, p.verdict)
	s.Amount = p.amount
	s.Rate = p.quote.Rate
	o.record(s.Status, p.started)
	o.logger.Info("swap abandoned before settlement", zap.String("pair", s.Pair))
	return s
}

func (o *Orchestrator) settlement(req domain.SwapRequest, status domain.SettlementStatus, verdict domain.Verdict) domain.Settlement {
	return domain.Settlement{
		Status:    status,
		Pair:      req.Pair().String(),
		From:      req.From,
		To:        req.To,
		Verdict:   verdict,
		Timestamp: o.now(),
	}
}

func (o *Orchestrator) record(status domain.SettlementStatus, started time.Time) {
	if o.metrics != nil {
		o.metrics.SwapFinished(status, o.now().Sub(started))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
