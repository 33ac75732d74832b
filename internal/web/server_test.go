package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/internal/events"
	"github.com/vadiminshakov/tokenswap/internal/services/catalog"
	"github.com/vadiminshakov/tokenswap/internal/services/swap"
	"github.com/vadiminshakov/tokenswap/internal/services/wallet"
	"github.com/vadiminshakov/tokenswap/pkg/numfmt"
)

type fakeJournal struct {
	records []domain.SettlementRecord
}

func (j *fakeJournal) SettlementsAfter(index uint64) ([]domain.SettlementRecord, error) {
	var out []domain.SettlementRecord
	for _, r := range j.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixture struct {
	store  *catalog.Store
	ledger *wallet.Ledger
	feed   *events.BalanceBroadcaster
	server *Server
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()
	f := &fixture{
		store: catalog.NewStore(),
		ledger: wallet.NewLedger(map[string]decimal.Decimal{
			"USD":  decimal.NewFromInt(100),
			"ATOM": decimal.NewFromInt(3),
		}, nil),
		feed: events.NewBalanceBroadcaster(8),
	}
	f.store.Update([]domain.Token{
		{Symbol: "ETH", Price: decimal.NewFromInt(2000)},
		{Symbol: "ATOM", Price: decimal.RequireFromString("7.5")},
		{Symbol: "USD", Price: decimal.NewFromInt(1)},
	})

	orch, err := swap.NewOrchestrator(f.ledger, f.store, nil,
		swap.WithSleeper(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
		swap.WithPublisher(f.feed))
	require.NoError(t, err)

	deps.Swaps = orch
	deps.Catalog = f.store
	deps.Wallet = f.ledger
	if deps.BalanceFeed == nil {
		deps.BalanceFeed = f.feed
	}
	deps.Formatter = numfmt.New("de")
	f.server, err = NewServer(":0", deps, nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestServer_Tokens(t *testing.T) {
	f := newFixture(t, Deps{})

	rec, body := f.do(t, http.MethodGet, "/api/tokens", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tokens := body["tokens"].([]any)
	require.Len(t, tokens, 3)
	assert.Equal(t, "ETH", tokens[0].(map[string]any)["symbol"])

	f.store.Fail(assert.AnError)
	rec, body = f.do(t, http.MethodGet, "/api/tokens", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "catalog unavailable", body["error"])
}

func TestServer_Balances(t *testing.T) {
	f := newFixture(t, Deps{})

	rec, body := f.do(t, http.MethodGet, "/api/balances", "")
	require.Equal(t, http.StatusOK, rec.Code)
	balances := body["balances"].([]any)
	require.Len(t, balances, 2)
	assert.Equal(t, "ATOM", balances[0].(map[string]any)["symbol"])
	assert.Equal(t, "100", balances[1].(map[string]any)["display"])
}

func TestServer_Validate(t *testing.T) {
	f := newFixture(t, Deps{})

	rec, body := f.do(t, http.MethodPost, "/api/validate", `{"from":"USD","to":"ETH","amount":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["can_submit"])
	assert.Equal(t, "ok", body["verdict"].(map[string]any)["code"])

	_, body = f.do(t, http.MethodPost, "/api/validate", `{"from":"USD","to":"USD","amount":"1"}`)
	assert.Equal(t, false, body["can_submit"])
	assert.Equal(t, "cannot swap the same token", body["message"])

	rec, _ = f.do(t, http.MethodPost, "/api/validate", `{"from":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/validate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Quote(t *testing.T) {
	f := newFixture(t, Deps{})

	rec, body := f.do(t, http.MethodPost, "/api/quote", `{"from":"USD","to":"ETH","amount":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	q := body["quote"].(map[string]any)
	assert.Equal(t, "0.025", q["output"])
	assert.Equal(t, "0,025", q["output_display"])
	assert.Equal(t, "0,0005", q["rate_display"])
	assert.Equal(t, "≈ $50", q["from_usd_display"])

	_, body = f.do(t, http.MethodPost, "/api/quote", `{"from":"USD","amount":"50"}`)
	assert.Nil(t, body["quote"])
}

func TestServer_Submit(t *testing.T) {
	f := newFixture(t, Deps{})

	rec, body := f.do(t, http.MethodPost, "/api/swaps", `{"from":"USD","to":"ETH","amount":"50"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "settled", body["status"])
	assert.Equal(t, "swapped 50 USD for 0.025 ETH", body["message"])
	assert.True(t, f.ledger.Balance("USD").Equal(decimal.NewFromInt(50)))

	rec, body = f.do(t, http.MethodPost, "/api/swaps", `{"from":"USD","to":"ETH","amount":"500"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "rejected", body["status"])

	f.store.Fail(assert.AnError)
	rec, _ = f.do(t, http.MethodPost, "/api/swaps", `{"from":"USD","to":"ETH","amount":"1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSettlementStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, settlementStatusCode(domain.SettlementSettled))
	assert.Equal(t, http.StatusUnprocessableEntity, settlementStatusCode(domain.SettlementRejected))
	assert.Equal(t, http.StatusConflict, settlementStatusCode(domain.SettlementFailed))
	assert.Equal(t, http.StatusRequestTimeout, settlementStatusCode(domain.SettlementAbandoned))
}

func TestServer_MetricsRoute(t *testing.T) {
	f := newFixture(t, Deps{Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})})

	rec, _ := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func openStream(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body), func() {
		cancel()
		resp.Body.Close()
	}
}

func TestServer_SwapStream(t *testing.T) {
	journal := &fakeJournal{records: []domain.SettlementRecord{
		{Index: 1, Settlement: domain.Settlement{ID: "a", Status: domain.SettlementSettled, Message: "swapped 50 USD for 0.025 ETH"}},
	}}
	f := newFixture(t, Deps{Journal: journal})
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	reader, closeStream := openStream(t, ts.URL+"/api/swaps/stream")
	defer closeStream()

	name, data := readEvent(t, reader)
	assert.Equal(t, "swap", name)
	var s domain.Settlement
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	assert.Equal(t, "a", s.ID)
}

func TestServer_SwapStreamWithoutJournal(t *testing.T) {
	f := newFixture(t, Deps{})
	rec, body := f.do(t, http.MethodGet, "/api/swaps/stream", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "swap journal not available", body["error"])
}

func TestServer_BalanceStream(t *testing.T) {
	f := newFixture(t, Deps{})
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	reader, closeStream := openStream(t, ts.URL+"/api/balances/stream")
	defer closeStream()
	require.Eventually(t, func() bool { return f.feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	f.feed.Publish(domain.NewBalanceUpdate(time.Now(), "ETH", decimal.RequireFromString("0.025"), "a"))

	name, data := readEvent(t, reader)
	assert.Equal(t, "balance", name)
	var u domain.BalanceUpdate
	require.NoError(t, json.Unmarshal([]byte(data), &u))
	assert.Equal(t, "ETH", u.Symbol)
	assert.True(t, u.Balance.Equal(decimal.RequireFromString("0.025")))
}

func TestNewServer_Requires(t *testing.T) {
	_, err := NewServer(":0", Deps{}, nil)
	assert.Error(t, err)
}
