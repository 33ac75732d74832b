package pricer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

const (
	hyperliquidMainnetURL = "https://api.hyperliquid.xyz"
	hyperliquidQuoteAsset = "USDC"
)

type midsSource interface {
	AllMids(ctx context.Context) (map[string]string, error)
}

// HyperliquidFeed prices every coin from the public Info API mid prices.
// Mids are quoted in USDC.
type HyperliquidFeed struct {
	baseURL string
	once    sync.Once
	info    midsSource
	now     func() time.Time
}

// NewHyperliquidFeed creates a feed over info. A nil info is built on the
// first Fetch against baseURL, or mainnet when baseURL is empty.
func NewHyperliquidFeed(info *hyperliquid.Info, baseURL string) *HyperliquidFeed {
	if baseURL == "" {
		baseURL = hyperliquidMainnetURL
	}
	f := &HyperliquidFeed{baseURL: baseURL, now: time.Now}
	if info != nil {
		f.info = info
	}
	return f
}

func (f *HyperliquidFeed) Fetch(ctx context.Context) ([]domain.PriceRecord, error) {
	f.once.Do(func() {
		if f.info == nil {
			f.info = hyperliquid.NewInfo(context.Background(), f.baseURL, true, nil, nil)
		}
	})
	mids, err := f.info.AllMids(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get hyperliquid mids")
	}
	if len(mids) == 0 {
		return nil, errors.New("hyperliquid API returned empty mids")
	}
	return recordsFromMids(mids, f.now()), nil
}

// recordsFromMids skips "@N" spot index keys and unparseable mids. Records
// after the leading USDC entry are sorted by coin.
func recordsFromMids(mids map[string]string, at time.Time) []domain.PriceRecord {
	coins := make([]string, 0, len(mids))
	for coin := range mids {
		if coin == "" || strings.HasPrefix(coin, "@") || coin == hyperliquidQuoteAsset {
			continue
		}
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	records := make([]domain.PriceRecord, 0, len(coins)+1)
	records = append(records, domain.PriceRecord{Currency: hyperliquidQuoteAsset, Price: decimal.NewFromInt(1), Date: at})
	for _, coin := range coins {
		price, err := decimal.NewFromString(mids[coin])
		if err != nil {
			continue
		}
		records = append(records, domain.PriceRecord{Currency: coin, Price: price, Date: at})
	}
	return records
}
