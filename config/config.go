package config

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// Price feed sources.
const (
	FeedHTTP        = "http"
	FeedBinance     = "binance"
	FeedBybit       = "bybit"
	FeedHyperliquid = "hyperliquid"
	FeedStatic      = "static"
)

const (
	defaultListenAddr   = ":8080"
	defaultLocale       = "de"
	defaultPricesURL    = "https://interview.switcheo.com/prices.json"
	defaultPollInterval = 30 * time.Second
	defaultFeedTimeout  = 10 * time.Second
	defaultQuoteAsset   = "USDT"
	defaultIconsBaseURL = "https://raw.githubusercontent.com/Switcheo/token-icons/main/tokens/"
	defaultDelay        = 2 * time.Second
	defaultJournalDir   = "./wal/swaps"
)

// DefaultIconSymbols are the tokens that have an icon out of the box.
var DefaultIconSymbols = []string{
	"ATOM", "BLUR", "BUSD", "bNEO", "EVMOS", "ETH", "GMX", "IBCX", "IRIS", "KUJI",
	"LSI", "LUNA", "OKB", "OKT", "OSMO", "RATOM", "rSWTH", "STATOM", "STEVMOS", "STLUNA",
	"STOSMO", "STRD", "SWTH", "USC", "USD", "USDC", "WBTC", "wstETH", "YieldUSD", "ZIL",
	"ampLUNA", "axlUSDC",
}

// Config is the runtime configuration of the swap engine.
type Config struct {
	ListenAddr string
	Locale     string
	Feed       FeedConfig
	Icons      IconsConfig
	Wallet     map[string]decimal.Decimal
	Settlement SettlementConfig
	JournalDir string
	TUI        bool
}

type FeedConfig struct {
	Source       string
	URL          string
	PollInterval time.Duration
	Timeout      time.Duration
	QuoteAsset   string
	Static       []domain.PriceRecord
}

type IconsConfig struct {
	BaseURL string
	Symbols []string
}

type SettlementConfig struct {
	Delay  time.Duration
	Jitter time.Duration
}

// IconIndex maps every configured symbol to its icon URL.
func (c IconsConfig) IconIndex() map[string]string {
	index := make(map[string]string, len(c.Symbols))
	for _, symbol := range c.Symbols {
		index[symbol] = c.BaseURL + symbol + ".svg"
	}
	return index
}

// ConfigTmp is the raw yaml form of Config.
type ConfigTmp struct {
	ListenAddr string            `yaml:"listen_addr"`
	Locale     string            `yaml:"locale"`
	Feed       feedTmp           `yaml:"feed"`
	Icons      iconsTmp          `yaml:"icons"`
	Wallet     map[string]string `yaml:"wallet"`
	Settlement settlementTmp     `yaml:"settlement"`
	Journal    journalTmp        `yaml:"journal"`
	TUI        bool              `yaml:"tui"`
}

type feedTmp struct {
	Source       string        `yaml:"source"`
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	QuoteAsset   string        `yaml:"quote_asset"`
	Static       []priceTmp    `yaml:"static"`
}

type priceTmp struct {
	Currency string `yaml:"currency"`
	Price    string `yaml:"price"`
}

type iconsTmp struct {
	BaseURL string   `yaml:"base_url"`
	Symbols []string `yaml:"symbols"`
}

type settlementTmp struct {
	Delay  *time.Duration `yaml:"delay"`
	Jitter time.Duration  `yaml:"jitter"`
}

type journalTmp struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when nothing is provided.
func Default() Config {
	return Config{
		ListenAddr: defaultListenAddr,
		Locale:     defaultLocale,
		Feed: FeedConfig{
			Source:       FeedHTTP,
			URL:          defaultPricesURL,
			PollInterval: defaultPollInterval,
			Timeout:      defaultFeedTimeout,
			QuoteAsset:   defaultQuoteAsset,
		},
		Icons: IconsConfig{
			BaseURL: defaultIconsBaseURL,
			Symbols: slices.Clone(DefaultIconSymbols),
		},
		Wallet: map[string]decimal.Decimal{
			"USD":  decimal.NewFromInt(1000),
			"ETH":  decimal.NewFromInt(1),
			"ATOM": decimal.NewFromInt(50),
			"OSMO": decimal.NewFromInt(200),
			"SWTH": decimal.NewFromInt(10000),
		},
		Settlement: SettlementConfig{Delay: defaultDelay},
		JournalDir: defaultJournalDir,
	}
}

// Get reads the configuration from the command line.
func Get() (Config, error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

// Parse loads defaults, then the yaml file named by -config, then explicitly set flags.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	path := fs.String("config", "", "path to yaml config")
	listen := fs.String("listen", defaultListenAddr, "http listen address")
	feed := fs.String("feed", FeedHTTP, "price feed source: http, binance, bybit, hyperliquid or static")
	feedURL := fs.String("feed-url", defaultPricesURL, "prices.json url for the http feed")
	poll := fs.Duration("poll", defaultPollInterval, "price refresh interval")
	tui := fs.Bool("tui", false, "run the terminal swap form")
	locale := fs.String("locale", defaultLocale, "number formatting locale, example: de, en-US")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		var err error
		cfg, err = getYaml(*path)
		if err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.ListenAddr = *listen
		case "feed":
			cfg.Feed.Source = strings.ToLower(strings.TrimSpace(*feed))
		case "feed-url":
			cfg.Feed.URL = *feedURL
		case "poll":
			cfg.Feed.PollInterval = *poll
		case "tui":
			cfg.TUI = *tui
		case "locale":
			cfg.Locale = *locale
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getYaml(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return FromYAML(raw)
}

// FromYAML builds a Config from yaml, filling unset keys with defaults.
func FromYAML(raw []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "parse yaml config")
	}

	cfg := Default()
	if tmp.ListenAddr != "" {
		cfg.ListenAddr = tmp.ListenAddr
	}
	if tmp.Locale != "" {
		cfg.Locale = tmp.Locale
	}
	if tmp.Feed.Source != "" {
		cfg.Feed.Source = strings.ToLower(tmp.Feed.Source)
	}
	if tmp.Feed.URL != "" {
		cfg.Feed.URL = tmp.Feed.URL
	}
	if tmp.Feed.PollInterval != 0 {
		cfg.Feed.PollInterval = tmp.Feed.PollInterval
	}
	if tmp.Feed.Timeout != 0 {
		cfg.Feed.Timeout = tmp.Feed.Timeout
	}
	if tmp.Feed.QuoteAsset != "" {
		cfg.Feed.QuoteAsset = strings.ToUpper(tmp.Feed.QuoteAsset)
	}
	for i, p := range tmp.Feed.Static {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'feed.static[%d].price' param in yaml config (must be a decimal), error: %w", i, err)
		}
		cfg.Feed.Static = append(cfg.Feed.Static, domain.PriceRecord{Currency: p.Currency, Price: price})
	}

	if tmp.Icons.BaseURL != "" {
		cfg.Icons.BaseURL = tmp.Icons.BaseURL
	}
	if len(tmp.Icons.Symbols) > 0 {
		cfg.Icons.Symbols = tmp.Icons.Symbols
	}

	if len(tmp.Wallet) > 0 {
		cfg.Wallet = make(map[string]decimal.Decimal, len(tmp.Wallet))
		for symbol, value := range tmp.Wallet {
			balance, err := decimal.NewFromString(value)
			if err != nil {
				return Config{}, fmt.Errorf("incorrect 'wallet.%s' param in yaml config (must be a decimal), error: %w", symbol, err)
			}
			cfg.Wallet[symbol] = balance
		}
	}

	if tmp.Settlement.Delay != nil {
		cfg.Settlement.Delay = *tmp.Settlement.Delay
	}
	cfg.Settlement.Jitter = tmp.Settlement.Jitter
	if tmp.Journal.Dir != "" {
		cfg.JournalDir = tmp.Journal.Dir
	}
	cfg.TUI = tmp.TUI

	return cfg, nil
}

// Validate checks the values a running engine depends on.
func (c Config) Validate() error {
	switch c.Feed.Source {
	case FeedHTTP:
		if c.Feed.URL == "" {
			return errors.New("'feed.url' is required for the http feed")
		}
	case FeedBinance, FeedBybit, FeedHyperliquid:
	case FeedStatic:
		if len(c.Feed.Static) == 0 {
			return errors.New("'feed.static' must list prices for the static feed")
		}
	default:
		return fmt.Errorf("unknown 'feed.source' %q, expected http, binance, bybit, hyperliquid or static", c.Feed.Source)
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("'feed.poll_interval' must be positive, got %s", c.Feed.PollInterval)
	}
	if c.Settlement.Delay < 0 || c.Settlement.Jitter < 0 {
		return errors.New("'settlement.delay' and 'settlement.jitter' must not be negative")
	}
	if len(c.Icons.Symbols) == 0 {
		return errors.New("'icons.symbols' must not be empty")
	}
	for symbol, balance := range c.Wallet {
		if balance.IsNegative() {
			return fmt.Errorf("'wallet.%s' must not be negative, got %s", symbol, balance)
		}
	}
	return nil
}
