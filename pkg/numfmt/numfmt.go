// Package numfmt renders amounts for people: locale grouping and separators,
// at most six fractional digits.
package numfmt

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DisplayPlaces is the fractional precision of every rendered amount.
const DisplayPlaces = 6

// Formatter renders decimals in one locale.
type Formatter struct {
	printer *message.Printer
	tag     language.Tag
}

// New returns a formatter for the BCP 47 locale. Unknown or empty locales
// fall back to German, which uses the European separators.
func New(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.German
	}
	return &Formatter{printer: message.NewPrinter(tag), tag: tag}
}

// Locale returns the resolved locale.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Amount renders d rounded to DisplayPlaces, trailing zeros trimmed.
func (f *Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(DisplayPlaces).InexactFloat64(),
		number.MaxFractionDigits(DisplayPlaces)))
}

// USD renders the dollar hint shown next to an amount, e.g. "≈ $1.234,5".
func (f *Formatter) USD(d decimal.Decimal) string {
	return "≈ $" + f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(),
		number.MaxFractionDigits(2)))
}

// Plain renders d rounded to DisplayPlaces with a dot separator and no grouping,
// the form used in machine-facing fields and validator messages.
func Plain(d decimal.Decimal) string {
	return d.Round(DisplayPlaces).String()
}
