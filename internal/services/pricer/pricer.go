// Package pricer provides price feed sources for the token catalog.
package pricer

import (
	"context"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// Feed returns the full list of price records known to a source.
type Feed interface {
	Fetch(ctx context.Context) ([]domain.PriceRecord, error)
}
