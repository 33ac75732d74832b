package pricer

import (
	"context"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

const defaultQuoteAsset = "USDT"

// BinanceFeed prices every Binance spot symbol quoted in a single asset,
// using the public ticker endpoint without authentication.
type BinanceFeed struct {
	client *binance.Client
	quote  string
	now    func() time.Time
}

// NewBinanceFeed creates a feed over client; an empty quote defaults to USDT.
func NewBinanceFeed(client *binance.Client, quote string) *BinanceFeed {
	if client == nil {
		// public data only, no API keys
		client = binance.NewClient("", "")
	}
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		quote = defaultQuoteAsset
	}
	return &BinanceFeed{client: client, quote: quote, now: time.Now}
}

// Fetch lists all ticker prices and keeps the ones quoted in the feed's asset.
func (f *BinanceFeed) Fetch(ctx context.Context) ([]domain.PriceRecord, error) {
	prices, err := f.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list binance prices")
	}
	if len(prices) == 0 {
		return nil, errors.New("binance API returned empty prices")
	}
	return recordsFromTickers(prices, f.quote, f.now()), nil
}

// recordsFromTickers maps BASEQUOTE tickers to base-asset records priced in
// the quote asset. The quote asset itself is emitted first at price 1.
func recordsFromTickers(prices []*binance.SymbolPrice, quote string, at time.Time) []domain.PriceRecord {
	tickers := make([]symbolPrice, 0, len(prices))
	for _, p := range prices {
		if p == nil {
			continue
		}
		tickers = append(tickers, symbolPrice{symbol: p.Symbol, price: p.Price})
	}
	return quotedRecords(tickers, quote, at)
}

type symbolPrice struct {
	symbol string
	price  string
}

// quotedRecords keeps BASEQUOTE symbols with a parseable price and prepends
// the quote asset at 1.
func quotedRecords(tickers []symbolPrice, quote string, at time.Time) []domain.PriceRecord {
	records := make([]domain.PriceRecord, 0, len(tickers)/4+1)
	records = append(records, domain.PriceRecord{Currency: quote, Price: decimal.NewFromInt(1), Date: at})

	for _, t := range tickers {
		if !strings.HasSuffix(t.symbol, quote) {
			continue
		}
		base := strings.TrimSuffix(t.symbol, quote)
		if base == "" {
			continue
		}
		price, err := decimal.NewFromString(t.price)
		if err != nil {
			continue
		}
		records = append(records, domain.PriceRecord{Currency: base, Price: price, Date: at})
	}
	return records
}
