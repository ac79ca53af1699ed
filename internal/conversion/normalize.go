package conversion

import (
	"strings"

	"github.com/mtlprog/wallet/internal/domain"
)

// Normalize cleans keyboard input for currency. Both '.' and ',' are decimal separators
// in every unit. Sats keep the digits before the first separator, so a fraction is
// truncated. BTC and USD keep one separator and the fraction up to the unit precision;
// anything after a second separator is dropped. A lone or trailing point is kept so the
// user can continue typing. Other characters are skipped.
func Normalize(currency domain.DisplayCurrency, text string) string {
	if currency == domain.CurrencySats || !currency.Valid() {
		whole, _, _ := cutSeparator(text)
		return digitsOnly(whole)
	}

	whole, rest, found := cutSeparator(text)
	if !found {
		return digitsOnly(whole)
	}
	fraction, _, _ := cutSeparator(rest)
	fraction = digitsOnly(fraction)
	if p := int(currency.Precision()); len(fraction) > p {
		fraction = fraction[:p]
	}
	return digitsOnly(whole) + "." + fraction
}

// cutSeparator splits text around the first '.' or ','.
func cutSeparator(text string) (before, after string, found bool) {
	i := strings.IndexAny(text, ".,")
	if i < 0 {
		return text, "", false
	}
	return text[:i], text[i+1:], true
}

func digitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
