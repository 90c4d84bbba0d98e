package quotation

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
)

// Filename builds "<prefix>_Quotation_<quote number>.pdf". The quote number
// is reduced to a filesystem and header safe token; when it is empty the
// fallback token is used instead.
func Filename(prefix, quoteNumber, fallback string) string {
	token := SanitizeToken(quoteNumber)
	if token == "" {
		token = SanitizeToken(fallback)
	}
	return fmt.Sprintf("%s_Quotation_%s.pdf", prefix, token)
}

// SanitizeToken keeps letters, digits, '.', '_' and '-', turns every other
// run of characters into a single '-', and trims leading dots and dashes.
func SanitizeToken(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			b.WriteRune(r)
			lastDash = true
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), ".-")
}

// NewQuoteNumber returns "<prefix>/<year>/<NNN>" with NNN in 001..999
func NewQuoteNumber(prefix string, now time.Time) string {
	return formatQuoteNumber(prefix, now, rand.IntN(999)+1)
}

func formatQuoteNumber(prefix string, now time.Time, seq int) string {
	return fmt.Sprintf("%s/%d/%03d", prefix, now.Year(), seq)
}
