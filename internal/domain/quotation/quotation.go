package quotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/arvi/quotation/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrEmptyQuotation is returned when a request carries no quotation fields.
var ErrEmptyQuotation = shared.NewDomainError("INVALID_INPUT", "Request body is required")

// LineItem is one priced row as submitted by the caller.
// Value is informational; the rendered value is always recomputed.
type LineItem struct {
	SerialNo    string `json:"slno" binding:"max=32"`
	Description string `json:"description" binding:"max=20000"`
	UnitPrice   Amount `json:"unitPrice"`
	Quantity    Amount `json:"qty"`
	Value       Amount `json:"value"`
}

// Price returns the unit price; missing, malformed or negative prices are zero
func (li LineItem) Price() decimal.Decimal {
	p := li.UnitPrice.Decimal()
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// MaxQuantity is the largest quantity a line item accepts
const MaxQuantity = 1_000_000

var maxQuantity = decimal.NewFromInt(MaxQuantity)

// Qty returns the quantity as a positive integer. Missing, malformed,
// non-positive and out-of-range quantities default to 1; fractions are truncated.
func (li LineItem) Qty() int64 {
	d := li.Quantity.Decimal()
	if d.LessThan(decimal.NewFromInt(1)) || d.GreaterThan(maxQuantity) {
		return 1
	}
	return d.IntPart()
}

// Quotation is the document submitted for preview or export.
// Caller-supplied totals are decoded so they can be logged, never trusted.
type Quotation struct {
	QuoteNumber          string `json:"quoteNumber" binding:"max=64"`
	QuoteDate            string `json:"quoteDate" binding:"max=64"`
	CustomerName         string `json:"customerName" binding:"max=500"`
	CustomerAddress      string `json:"customerAddress" binding:"max=2000"`
	KindAttn             string `json:"kindAttn" binding:"max=500"`
	Subject              string `json:"subject" binding:"max=1000"`
	ReferenceText        string `json:"referenceText"`
	OptionTitle          string `json:"optionTitle" binding:"max=1000"`
	OptionDetails        string `json:"optionDetails"`
	Option2Title         string `json:"option2Title" binding:"max=1000"`
	Option2Details       string `json:"option2Details"`
	TermsAndConditions   string `json:"termsAndConditions"`
	Notes                string `json:"notes"`
	SignatoryName        string `json:"signatoryName" binding:"max=200"`
	SignatoryDesignation string `json:"signatoryDesignation" binding:"max=200"`

	Items        []LineItem `json:"items" binding:"max=500,dive"`
	Option2Items []LineItem `json:"option2Items" binding:"max=500,dive"`

	ClaimedSubtotal   Amount `json:"subtotal"`
	ClaimedSurcharge  Amount `json:"gstAmount"`
	ClaimedGrandTotal Amount `json:"grandTotal"`
}

// Decode parses a request body. An empty body, a JSON null and an empty
// object are all rejected with ErrEmptyQuotation.
func Decode(body []byte) (*Quotation, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, ErrEmptyQuotation
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Request body must be a JSON object: %v", err))
	}
	if len(fields) == 0 {
		return nil, ErrEmptyQuotation
	}

	var q Quotation
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Malformed quotation: %v", err))
	}
	return &q, nil
}

// HasClaimedTotals reports whether the caller sent any totals of its own
func (q *Quotation) HasClaimedTotals() bool {
	return !q.ClaimedSubtotal.IsBlank() || !q.ClaimedSurcharge.IsBlank() || !q.ClaimedGrandTotal.IsBlank()
}

// PricedLine is a LineItem after coercion, ready for display.
type PricedLine struct {
	SerialNo    string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int64
	Value       decimal.Decimal
}

// PricedTable is one item table with its own totals.
type PricedTable struct {
	Lines  []PricedLine
	Totals Totals
}

// IsEmpty reports whether the table has no rows
func (t PricedTable) IsEmpty() bool {
	return len(t.Lines) == 0
}

// Price coerces items and numbers rows without a serial label by their
// position in this list. Numbering state never outlives the call.
func (c Calculator) Price(items []LineItem) PricedTable {
	lines := make([]PricedLine, 0, len(items))
	for i, it := range items {
		serial := it.SerialNo
		if serial == "" {
			serial = strconv.Itoa(i + 1)
		}
		lines = append(lines, PricedLine{
			SerialNo:    serial,
			Description: it.Description,
			UnitPrice:   it.Price(),
			Quantity:    it.Qty(),
			Value:       c.LineValue(it),
		})
	}
	return PricedTable{Lines: lines, Totals: c.Calculate(items)}
}
