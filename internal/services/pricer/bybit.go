package pricer

import (
	"context"
	"strings"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// BybitFeed prices Bybit spot symbols quoted in a single asset from the
// public V5 tickers endpoint.
type BybitFeed struct {
	client *bybit.Client
	quote  string
	now    func() time.Time
}

func NewBybitFeed(client *bybit.Client, quote string) *BybitFeed {
	if client == nil {
		client = bybit.NewClient()
	}
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		quote = defaultQuoteAsset
	}
	return &BybitFeed{client: client, quote: quote, now: time.Now}
}

func (f *BybitFeed) Fetch(ctx context.Context) ([]domain.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := f.client.V5().Market().GetTickers(bybit.V5GetTickersParam{Category: "spot"})
	if err != nil {
		return nil, errors.Wrap(err, "get bybit tickers")
	}
	if result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
		return nil, errors.New("bybit API returned empty prices")
	}
	return recordsFromSpotItems(result.Result.Spot.List, f.quote, f.now()), nil
}

func recordsFromSpotItems(items []bybit.V5GetTickersSpotItem, quote string, at time.Time) []domain.PriceRecord {
	tickers := make([]symbolPrice, 0, len(items))
	for _, it := range items {
		tickers = append(tickers, symbolPrice{symbol: string(it.Symbol), price: it.LastPrice})
	}
	return quotedRecords(tickers, quote, at)
}
