package web

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/internal/services/catalog"
	"github.com/vadiminshakov/tokenswap/internal/services/swap"
	"github.com/vadiminshakov/tokenswap/pkg/numfmt"
)

const (
	journalPollInterval = 2 * time.Second
	heartbeatInterval   = 30 * time.Second
	maxRequestBody      = 1 << 16
)

type swapService interface {
	Evaluate(req domain.SwapRequest) (swap.Evaluation, error)
	Submit(ctx context.Context, req domain.SwapRequest) (domain.Settlement, error)
}

type catalogReader interface {
	Snapshot() (catalog.Snapshot, error)
}

type balanceReader interface {
	Balances() map[string]decimal.Decimal
}

type settlementReader interface {
	SettlementsAfter(index uint64) ([]domain.SettlementRecord, error)
}

type balanceSubscriber interface {
	Subscribe() chan domain.BalanceUpdate
	Unsubscribe(ch chan domain.BalanceUpdate)
}

type streamTracker interface {
	StreamOpened(stream string) func()
}

// Deps are the services the HTTP API is built on. Journal, Balances stream,
// Streams and Metrics are optional.
type Deps struct {
	Swaps        swapService
	Catalog      catalogReader
	Wallet       balanceReader
	Journal      settlementReader
	BalanceFeed  balanceSubscriber
	Streams      streamTracker
	Metrics      http.Handler
	Formatter    *numfmt.Formatter
	PollInterval time.Duration
}

// Server exposes the swap API, SSE streams and the HTML widget.
type Server struct {
	Addr   string
	deps   Deps
	logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Swaps == nil || deps.Catalog == nil || deps.Wallet == nil {
		return nil, errors.New("web server requires swaps, catalog and wallet")
	}
	if deps.Formatter == nil {
		deps.Formatter = numfmt.New("")
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = journalPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, deps: deps, logger: logger}, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/tokens", s.handleTokens)
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/quote", s.handleQuote)
	mux.HandleFunc("POST /api/swaps", s.handleSubmit)
	mux.HandleFunc("GET /api/swaps/stream", s.handleSwapStream)
	mux.HandleFunc("GET /api/balances/stream", s.handleBalanceStream)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "web server")
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

type tokensResponse struct {
	Tokens    []domain.Token `json:"tokens"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Catalog.Snapshot()
	if err != nil {
		s.catalogUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokensResponse{Tokens: snap.Tokens, UpdatedAt: snap.UpdatedAt})
}

type balanceEntry struct {
	Symbol  string          `json:"symbol"`
	Balance decimal.Decimal `json:"balance"`
	Display string          `json:"display"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances := s.deps.Wallet.Balances()
	out := make([]balanceEntry, 0, len(balances))
	for _, symbol := range slices.Sorted(maps.Keys(balances)) {
		b := balances[symbol]
		out = append(out, balanceEntry{Symbol: symbol, Balance: b, Display: s.deps.Formatter.Amount(b)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": out})
}

type validateResponse struct {
	Verdict        domain.Verdict  `json:"verdict"`
	Message        string          `json:"message,omitempty"`
	CanSubmit      bool            `json:"can_submit"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceDisplay string          `json:"balance_display"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	eval, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Verdict:        eval.Verdict,
		Message:        eval.Verdict.Message(),
		CanSubmit:      eval.CanSubmit(false),
		Balance:        eval.Input.Balance,
		BalanceDisplay: s.deps.Formatter.Amount(eval.Input.Balance),
	})
}

type quoteBody struct {
	Rate          decimal.Decimal `json:"rate"`
	Output        decimal.Decimal `json:"output"`
	RateDisplay   string          `json:"rate_display"`
	OutputDisplay string          `json:"output_display"`
	FromUSD       string          `json:"from_usd_display"`
	ToUSD         string          `json:"to_usd_display"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	eval, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	if eval.Quote == nil {
		writeJSON(w, http.StatusOK, map[string]any{"quote": nil})
		return
	}

	f := s.deps.Formatter
	q := quoteBody{
		Rate:          eval.Quote.Rate,
		Output:        eval.Quote.Output,
		RateDisplay:   f.Amount(eval.Quote.Rate),
		OutputDisplay: f.Amount(eval.Quote.Output),
		ToUSD:         f.USD(eval.Quote.Output.Mul(eval.Input.To.Price)),
	}
	if usd, ok := swap.USDValue(eval.Input.From, eval.Input.Amount); ok {
		q.FromUSD = f.USD(usd)
	}
	writeJSON(w, http.StatusOK, map[string]any{"quote": q})
}

type settlementResponse struct {
	domain.Settlement
	OutputDisplay string `json:"output_display"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	settlement, err := s.deps.Swaps.Submit(r.Context(), req)
	if errors.Is(err, catalog.ErrCatalogUnavailable) {
		s.catalogUnavailable(w, err)
		return
	}

	resp := settlementResponse{
		Settlement:    settlement,
		OutputDisplay: s.deps.Formatter.Amount(settlement.Output),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, settlementStatusCode(settlement.Status), resp)
}

func settlementStatusCode(status domain.SettlementStatus) int {
	switch status {
	case domain.SettlementSettled:
		return http.StatusOK
	case domain.SettlementRejected:
		return http.StatusUnprocessableEntity
	case domain.SettlementFailed:
		return http.StatusConflict
	default:
		return http.StatusRequestTimeout
	}
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) (swap.Evaluation, bool) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return swap.Evaluation{}, false
	}
	eval, err := s.deps.Swaps.Evaluate(req)
	if err != nil {
		s.catalogUnavailable(w, err)
		return swap.Evaluation{}, false
	}
	return eval, true
}

func (s *Server) catalogUnavailable(w http.ResponseWriter, err error) {
	s.logger.Debug("catalog unavailable", zap.Error(err))
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (domain.SwapRequest, bool) {
	var req domain.SwapRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
