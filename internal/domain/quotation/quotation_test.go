package quotation

import (
	"testing"
	"time"

	"github.com/arvi/quotation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("rejects empty bodies", func(t *testing.T) {
		for _, body := range []string{"", "   ", "null", "{}", " { } "} {
			_, err := Decode([]byte(body))
			assert.ErrorIs(t, err, ErrEmptyQuotation, "body %q", body)
		}
	})

	t.Run("rejects non-object JSON", func(t *testing.T) {
		for _, body := range []string{"[1,2]", `"text"`, "{broken"} {
			_, err := Decode([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrInvalidInput, "body %q", body)
		}
	})

	t.Run("decodes a form submission", func(t *testing.T) {
		q, err := Decode([]byte(`{
			"quoteNumber": "ARVI/2026/045",
			"customerName": "Test Customer",
			"referenceText": "Line 1\nLine 2",
			"items": [{"slno": "1", "description": "UPS", "unitPrice": "1000", "qty": "3", "value": "3,000.00"}],
			"option2Items": [],
			"subtotal": 1, "gstAmount": 2, "grandTotal": 3,
			"unknownField": true
		}`))
		require.NoError(t, err)

		assert.Equal(t, "ARVI/2026/045", q.QuoteNumber)
		assert.Equal(t, "Line 1\nLine 2", q.ReferenceText)
		require.Len(t, q.Items, 1)
		assert.Equal(t, int64(3), q.Items[0].Qty())
		assert.True(t, q.HasClaimedTotals())
	})
}

func TestFilename(t *testing.T) {
	tests := []struct {
		quote string
		want  string
	}{
		{"ARVI/2026/045", "ARVI_Quotation_ARVI-2026-045.pdf"},
		{"", "ARVI_Quotation_Q001.pdf"},
		{"   ", "ARVI_Quotation_Q001.pdf"},
		{"Q 12\\..//x", "ARVI_Quotation_Q-12-..-x.pdf"},
		{`a"b;c`, "ARVI_Quotation_a-b-c.pdf"},
		{"../../etc/passwd", "ARVI_Quotation_etc-passwd.pdf"},
		{"Ünïcode-7", "ARVI_Quotation_n-code-7.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.quote, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename("ARVI", tt.quote, "Q001"))
		})
	}
}

func TestQuoteNumber(t *testing.T) {
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "ARVI/2026/045", formatQuoteNumber("ARVI", now, 45))
	assert.Regexp(t, `^ARVI/2026/\d{3}$`, NewQuoteNumber("ARVI", now))
}
