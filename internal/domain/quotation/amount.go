package quotation

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// maxAmountLen bounds the normalized text of a number
	maxAmountLen = 40
	// maxAmountExponent bounds the decimal exponent in either direction
	maxAmountExponent = 20
)

// Amount is a numeric input taken from an untrusted form. It accepts JSON
// numbers, numeric strings, null and anything else without failing; values
// that cannot be read as a number evaluate to zero.
type Amount struct {
	raw string
}

// NewAmount builds an Amount from its textual form
func NewAmount(raw string) Amount {
	return Amount{raw: raw}
}

// AmountOf builds an Amount from a decimal value
func AmountOf(d decimal.Decimal) Amount {
	return Amount{raw: d.String()}
}

// UnmarshalJSON never returns an error so one malformed field cannot reject a document.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		a.raw = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			a.raw = ""
			return nil
		}
		a.raw = s
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		a.raw = string(data)
	default:
		a.raw = ""
	}
	return nil
}

// MarshalJSON writes the normalized number, or null when unset
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsBlank() {
		return []byte("null"), nil
	}
	return []byte(a.Decimal().String()), nil
}

// IsBlank reports whether no value was supplied
func (a Amount) IsBlank() bool {
	return strings.TrimSpace(a.raw) == ""
}

// Raw returns the value as received
func (a Amount) Raw() string {
	return a.raw
}

// Decimal parses the amount. Grouping separators, spaces and a leading
// currency symbol are ignored; anything unparsable is zero. Overlong numbers
// and exponents beyond ±20 count as unparsable.
func (a Amount) Decimal() decimal.Decimal {
	s := normalizeNumber(a.raw)
	if s == "" || len(s) > maxAmountLen {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero
	}
	return d
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "₹$€£¥ ")
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '_', '\u00a0':
			return -1
		}
		return r
	}, s)
}
