package pricer

import (
	"testing"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

func TestRecordsFromSpotItems(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := recordsFromSpotItems([]bybit.V5GetTickersSpotItem{
		{Symbol: "BTCUSDT", LastPrice: "65000.10"},
		{Symbol: "ETHBTC", LastPrice: "0.05"},
		{Symbol: "SOLUSDT", LastPrice: ""},
		{Symbol: "ETHUSDT", LastPrice: "2000"},
	}, "USDT", at)

	require.Len(t, records, 3)
	assert.Equal(t, domain.PriceRecord{Currency: "USDT", Price: decimal.NewFromInt(1), Date: at}, records[0])
	assert.Equal(t, "BTC", records[1].Currency)
	assert.True(t, records[1].Price.Equal(decimal.RequireFromString("65000.10")))
	assert.Equal(t, "ETH", records[2].Currency)
}

func TestNewBybitFeed_DefaultQuote(t *testing.T) {
	assert.Equal(t, "USDT", NewBybitFeed(nil, "").quote)
	assert.Equal(t, "USDC", NewBybitFeed(nil, "usdc").quote)
}
