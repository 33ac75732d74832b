// Package catalog derives the list of swappable tokens from the price feed
// and keeps the current snapshot available to the swap engine.
package catalog

import (
	"sort"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

// IconIndex maps a symbol to its icon reference. Symbols missing from the
// index are never swappable.
type IconIndex map[string]string

// Build derives the token catalog from a price feed.
//
// The first positive price seen for a symbol wins; later duplicates are ignored.
// Only symbols present in icons are emitted. The result is ordered by descending
// price, ties broken by ascending symbol.
func Build(feed []domain.PriceRecord, icons IconIndex) []domain.Token {
	prices := make(map[string]domain.PriceRecord, len(feed))
	for _, record := range feed {
		if record.Currency == "" || !record.Price.IsPositive() {
			continue
		}
		if _, seen := prices[record.Currency]; seen {
			continue
		}
		prices[record.Currency] = record
	}

	tokens := make([]domain.Token, 0, len(icons))
	for symbol, icon := range icons {
		record, ok := prices[symbol]
		if !ok {
			continue
		}
		tokens = append(tokens, domain.Token{Symbol: symbol, Price: record.Price, Icon: icon})
	}

	sort.Slice(tokens, func(i, j int) bool {
		if c := tokens[i].Price.Cmp(tokens[j].Price); c != 0 {
			return c > 0
		}
		return tokens[i].Symbol < tokens[j].Symbol
	})

	return tokens
}

// Options returns the picker options for one side of the form: the catalog
// without the token selected on the other side.
func Options(tokens []domain.Token, exclude string) []domain.Token {
	if exclude == "" {
		return tokens
	}
	out := make([]domain.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Symbol != exclude {
			out = append(out, t)
		}
	}
	return out
}

// Find looks a symbol up in tokens.
func Find(tokens []domain.Token, symbol string) (domain.Token, bool) {
	for _, t := range tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return domain.Token{}, false
}
