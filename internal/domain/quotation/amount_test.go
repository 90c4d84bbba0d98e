package quotation

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		blank bool
	}{
		{name: "number", input: `1000`, want: "1000"},
		{name: "decimal number", input: `12.5`, want: "12.5"},
		{name: "numeric string", input: `"1000.25"`, want: "1000.25"},
		{name: "grouped string", input: `"1,00,000"`, want: "100000"},
		{name: "currency string", input: `"₹ 2,500"`, want: "2500"},
		{name: "empty string", input: `""`, want: "0", blank: true},
		{name: "null", input: `null`, want: "0", blank: true},
		{name: "garbage string", input: `"abc"`, want: "0"},
		{name: "boolean", input: `true`, want: "0", blank: true},
		{name: "object", input: `{"x":1}`, want: "0", blank: true},
		{name: "small exponent", input: `"1.5e3"`, want: "1500"},
		{name: "huge positive exponent", input: `"1e60000000"`, want: "0"},
		{name: "huge negative exponent", input: `"1e-50000000"`, want: "0"},
		{name: "exponent number", input: `1E400`, want: "0"},
		{name: "overlong digits", input: `"123456789012345678901234567890123456789012"`, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.input), &a))
			assert.True(t, a.Decimal().Equal(decimal.RequireFromString(tt.want)), "got %s", a.Decimal())
			assert.Equal(t, tt.blank, a.IsBlank())
		})
	}
}

func TestAmount_InsideStructNeverFails(t *testing.T) {
	var li LineItem
	err := json.Unmarshal([]byte(`{"unitPrice":[1,2],"qty":{"a":1},"value":"x"}`), &li)
	require.NoError(t, err)
	assert.True(t, li.Price().IsZero())
	assert.Equal(t, int64(1), li.Qty())
}

func TestAmount_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}{A: NewAmount("1,200.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1200.5,"b":null}`, string(out))
}
