package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/tokenswap/config"
	"github.com/vadiminshakov/tokenswap/internal/services/pricer"
)

// newFeed picks the price source named by the config.
// This is the single place that dispatches on feed.source.
func newFeed(cfg config.FeedConfig) (pricer.Feed, error) {
	switch cfg.Source {
	case config.FeedHTTP:
		return pricer.NewHTTPFeed(cfg.URL, cfg.Timeout), nil
	case config.FeedBinance:
		// public market data needs no API keys
		return pricer.NewBinanceFeed(binance.NewClient("", ""), cfg.QuoteAsset), nil
	case config.FeedBybit:
		return pricer.NewBybitFeed(bybit.NewClient(), cfg.QuoteAsset), nil
	case config.FeedHyperliquid:
		// info client is created on first fetch, mids are quoted in USDC
		return pricer.NewHyperliquidFeed(nil, ""), nil
	case config.FeedStatic:
		return pricer.NewStaticFeed(cfg.Static), nil
	default:
		return nil, fmt.Errorf("unsupported price feed: %q", cfg.Source)
	}
}
