package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/pkg/retrier"
)

func lookup(s *Store, symbol string) (domain.Token, bool) {
	snap, err := s.Snapshot()
	if err != nil {
		return domain.Token{}, false
	}
	return Find(snap.Tokens, symbol)
}

func TestStore_UnavailableUntilLoaded(t *testing.T) {
	s := NewStore()

	_, err := s.Snapshot()
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	_, ok := lookup(s, "USD")
	assert.False(t, ok)

	s.Update([]domain.Token{{Symbol: "USD"}})
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Tokens, 1)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestStore_FailThenRecover(t *testing.T) {
	s := NewStore()
	s.Update([]domain.Token{{Symbol: "USD"}})

	s.Fail(errors.New("connection refused"))
	_, err := s.Snapshot()
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	s.Update([]domain.Token{{Symbol: "ETH"}})
	tok, ok := lookup(s, "ETH")
	assert.True(t, ok)
	assert.Equal(t, "ETH", tok.Symbol)
}

func TestStore_UpdateCopiesTokens(t *testing.T) {
	s := NewStore()
	tokens := []domain.Token{{Symbol: "USD"}}
	s.Update(tokens)
	tokens[0].Symbol = "XXX"

	_, ok := lookup(s, "USD")
	assert.True(t, ok)
}

type fakeFeed struct {
	calls   atomic.Int32
	records []domain.PriceRecord
	err     error
}

func (f *fakeFeed) Fetch(ctx context.Context) ([]domain.PriceRecord, error) {
	f.calls.Add(1)
	return f.records, f.err
}

type fakeRecorder struct {
	tokens int
	errs   int
}

func (f *fakeRecorder) CatalogRefreshed(tokens int, err error) {
	f.tokens = tokens
	if err != nil {
		f.errs++
	}
}

func fastRetrier() *retrier.Retrier {
	return retrier.New(retrier.WithMaxRetries(1), retrier.WithInitialInterval(time.Millisecond))
}

func TestRefresher_Refresh(t *testing.T) {
	feed := &fakeFeed{records: []domain.PriceRecord{rec("USD", "1"), rec("ETH", "2000")}}
	store := NewStore()
	recorder := &fakeRecorder{}
	r, err := NewRefresher(feed, store, testIcons, time.Minute, zap.NewNop(),
		WithRetrier(fastRetrier()), WithRecorder(recorder))
	require.NoError(t, err)

	require.NoError(t, r.Refresh(context.Background()))
	snap, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH", "USD"}, symbols(snap.Tokens))
	assert.Equal(t, 2, recorder.tokens)
}

func TestRefresher_FetchFailureMarksUnavailable(t *testing.T) {
	feed := &fakeFeed{err: errors.New("503 service unavailable")}
	store := NewStore()
	store.Update([]domain.Token{{Symbol: "USD"}})
	recorder := &fakeRecorder{}
	r, err := NewRefresher(feed, store, testIcons, time.Minute, nil,
		WithRetrier(fastRetrier()), WithRecorder(recorder))
	require.NoError(t, err)

	err = r.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), feed.calls.Load(), "one retry")
	assert.Equal(t, 1, recorder.errs)

	_, err = store.Snapshot()
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	feed := &fakeFeed{records: []domain.PriceRecord{rec("USD", "1")}}
	store := NewStore()
	r, err := NewRefresher(feed, store, testIcons, 5*time.Millisecond, nil, WithRetrier(fastRetrier()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return feed.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
	_, ok := lookup(store, "USD")
	assert.True(t, ok)
}

func TestRefresher_DefaultRetrierLogsRetries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	feed := &fakeFeed{err: errors.New("503 service unavailable")}
	store := NewStore()
	r, err := NewRefresher(feed, store, testIcons, time.Second, zap.New(core))
	require.NoError(t, err)

	// the first backoff is far longer than the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Refresh(ctx))

	retries := logs.FilterMessage("price feed fetch failed, retrying").All()
	require.Len(t, retries, 1)
	assert.Equal(t, int64(1), retries[0].ContextMap()["attempt"])
	assert.Equal(t, "503 service unavailable", retries[0].ContextMap()["error"])
	_, err = store.Snapshot()
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestNewRefresher_RequiresFeedAndStore(t *testing.T) {
	_, err := NewRefresher(nil, NewStore(), testIcons, time.Second, nil)
	assert.Error(t, err)
	_, err = NewRefresher(&fakeFeed{}, nil, testIcons, time.Second, nil)
	assert.Error(t, err)
}
