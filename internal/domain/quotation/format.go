package quotation

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts with two fractional digits and the locale's
// digit grouping (en-IN groups as 12,34,567.00).
type Formatter struct {
	printer *message.Printer
	symbol  string
	point   string
}

// NewFormatter builds a formatter; an unknown locale falls back to English grouping
func NewFormatter(locale, currencySymbol string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	printer := message.NewPrinter(tag)
	// "1.5" in the locale yields its decimal separator between the digits
	half := printer.Sprint(number.Decimal(1.5, number.Scale(1)))
	point := "."
	if len(half) > 2 {
		point = half[1 : len(half)-1]
	}
	return Formatter{printer: printer, symbol: currencySymbol, point: point}
}

var maxGroupedInt = decimal.NewFromInt(math.MaxInt64)

// Amount formats d rounded half away from zero to two places. Digits come
// from the decimal itself and the printer only adds grouping; integer parts
// beyond int64 are left ungrouped.
func (f Formatter) Amount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	negative := d.IsNegative() && fixed != "0.00" // no "-0.00"
	whole, frac, _ := strings.Cut(fixed, ".")
	if w := decimal.RequireFromString(whole); w.LessThanOrEqual(maxGroupedInt) {
		whole = f.printer.Sprint(number.Decimal(w.IntPart()))
	}
	if negative {
		whole = "-" + whole
	}
	return whole + f.point + frac
}

// Money prefixes Amount with the currency symbol
func (f Formatter) Money(d decimal.Decimal) string {
	if f.symbol == "" {
		return f.Amount(d)
	}
	return f.symbol + " " + f.Amount(d)
}

// Percent renders a fractional rate as a whole percentage, e.g. 0.18 -> "18%"
func (f Formatter) Percent(rate decimal.Decimal) string {
	s := rate.Mul(decimal.NewFromInt(100)).Round(2).String()
	return strings.TrimSuffix(s, ".00") + "%"
}
