package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/tokenswap/internal/domain"
	"github.com/vadiminshakov/tokenswap/pkg/retrier"
)

const (
	// DefaultPricesURL is the public price list the widget was built against.
	DefaultPricesURL = "https://interview.switcheo.com/prices.json"

	defaultHTTPTimeout = 10 * time.Second
	maxBodySize        = 4 << 20
)

// HTTPFeed reads a JSON array of {currency, date, price} records.
type HTTPFeed struct {
	url        string
	httpClient *http.Client
}

// NewHTTPFeed creates a feed for url. A zero timeout uses the default.
func NewHTTPFeed(url string, timeout time.Duration) *HTTPFeed {
	if url == "" {
		url = DefaultPricesURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPFeed{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type priceEntry struct {
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
	Price    decimal.Decimal `json:"price"`
}

// Fetch downloads and decodes the price list. Client errors (4xx) are permanent.
func (f *HTTPFeed) Fetch(ctx context.Context) ([]domain.PriceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, retrier.Permanent(errors.Wrap(err, "build prices request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request prices")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("prices endpoint returned %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, retrier.Permanent(err)
		}
		return nil, err
	}

	var entries []priceEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decode prices")
	}

	records := make([]domain.PriceRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, domain.PriceRecord{
			Currency: e.Currency,
			Price:    e.Price,
			Date:     parseDate(e.Date),
		})
	}
	return records, nil
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
