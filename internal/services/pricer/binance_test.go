package pricer

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

func TestRecordsFromTickers(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := recordsFromTickers([]*binance.SymbolPrice{
		{Symbol: "BTCUSDT", Price: "65000.10"},
		{Symbol: "ETHBTC", Price: "0.05"},
		{Symbol: "ETHUSDT", Price: "2000"},
		{Symbol: "USDT", Price: "1"},
		{Symbol: "BADUSDT", Price: "n/a"},
		nil,
	}, "USDT", at)

	require.Len(t, records, 3)
	assert.Equal(t, domain.PriceRecord{Currency: "USDT", Price: decimal.NewFromInt(1), Date: at}, records[0])
	assert.Equal(t, "BTC", records[1].Currency)
	assert.True(t, records[1].Price.Equal(decimal.RequireFromString("65000.10")))
	assert.Equal(t, "ETH", records[2].Currency)
}

func TestNewBinanceFeed_DefaultQuote(t *testing.T) {
	f := NewBinanceFeed(nil, " usdc ")
	assert.Equal(t, "USDC", f.quote)
	assert.Equal(t, "USDT", NewBinanceFeed(nil, "").quote)
}

func TestStaticFeed(t *testing.T) {
	records := []domain.PriceRecord{{Currency: "USD", Price: decimal.NewFromInt(1)}}
	f := NewStaticFeed(records)
	records[0].Currency = "XXX"

	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USD", got[0].Currency)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
