package pricer

import (
	"context"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// StaticFeed serves a fixed price list, for offline runs.
type StaticFeed struct {
	records []domain.PriceRecord
}

// NewStaticFeed creates a feed that always returns records.
func NewStaticFeed(records []domain.PriceRecord) *StaticFeed {
	copied := make([]domain.PriceRecord, len(records))
	copy(copied, records)
	return &StaticFeed{records: copied}
}

// Fetch returns a copy of the configured records.
func (f *StaticFeed) Fetch(ctx context.Context) ([]domain.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.PriceRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}
