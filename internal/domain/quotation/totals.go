package quotation

import "github.com/shopspring/decimal"

// DefaultSurchargeRate is the GST rate applied to quotation subtotals.
var DefaultSurchargeRate = decimal.NewFromFloat(0.18)

// Totals holds full-precision amounts. Rounding happens only for display.
type Totals struct {
	Subtotal   decimal.Decimal
	Surcharge  decimal.Decimal
	GrandTotal decimal.Decimal
	Rate       decimal.Decimal
}

// Calculator derives line values and totals. It is the only source of
// truth for amounts shown in a rendered document.
type Calculator struct {
	rate decimal.Decimal
}

// NewCalculator creates a calculator for a fractional surcharge rate (0.18 = 18%)
func NewCalculator(rate float64) Calculator {
	return Calculator{rate: decimal.NewFromFloat(rate)}
}

// Rate returns the surcharge rate
func (c Calculator) Rate() decimal.Decimal {
	return c.rate
}

// LineValue returns unit price × quantity after coercion
func (c Calculator) LineValue(it LineItem) decimal.Decimal {
	return it.Price().Mul(decimal.NewFromInt(it.Qty()))
}

// Calculate sums line values and applies the surcharge
func (c Calculator) Calculate(items []LineItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(c.LineValue(it))
	}
	surcharge := subtotal.Mul(c.rate)
	return Totals{
		Subtotal:   subtotal,
		Surcharge:  surcharge,
		GrandTotal: subtotal.Add(surcharge),
		Rate:       c.rate,
	}
}

// Matches reports whether claimed totals agree with t to two decimal places.
func (t Totals) Matches(subtotal, surcharge, grandTotal Amount) bool {
	eq := func(a Amount, d decimal.Decimal) bool {
		return a.IsBlank() || a.Decimal().Round(2).Equal(d.Round(2))
	}
	return eq(subtotal, t.Subtotal) && eq(surcharge, t.Surcharge) && eq(grandTotal, t.GrandTotal)
}
