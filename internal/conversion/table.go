// Package conversion maps a bitcoin price to per-unit formatting and parsing rules
// for the sats, BTC and USD display currencies.
package conversion

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wallet/internal/domain"
)

var maxSats = decimal.NewFromInt(math.MaxInt64)

// Table holds the conversions for every display currency at a fixed price.
// A Table is immutable and safe for concurrent use.
type Table struct {
	price domain.Price
}

// NewTable builds the conversion table for price.
func NewTable(price domain.Price) Table {
	return Table{price: price}
}

// Price returns the quote the table was built with.
func (t Table) Price() domain.Price { return t.price }

// For returns the conversion rules for currency. Unknown currencies fall back to sats.
func (t Table) For(currency domain.DisplayCurrency) Conversion {
	switch currency {
	case domain.CurrencyUSD:
		return Conversion{Primary: domain.CurrencyUSD, Secondary: domain.CurrencyBTC, price: t.price}
	case domain.CurrencyBTC:
		return Conversion{Primary: domain.CurrencyBTC, Secondary: domain.CurrencyUSD, price: t.price}
	default:
		return Conversion{Primary: domain.CurrencySats, Secondary: domain.CurrencyUSD, price: t.price}
	}
}

// Conversion translates between a sats amount and the text shown for one display currency.
// Secondary is the read-only unit shown under the editable field.
type Conversion struct {
	Primary   domain.DisplayCurrency
	Secondary domain.DisplayCurrency

	price domain.Price
}

// Format renders amount in the primary unit.
func (c Conversion) Format(amount domain.Sats) string {
	return format(c.Primary, c.price, amount)
}

// Parse converts typed text in the primary unit back to sats.
// It reports false for partial or invalid input: empty text, a lone decimal point,
// a trailing decimal point, negative or non-numeric values.
func (c Conversion) Parse(text string) (domain.Sats, bool) {
	d, ok := parseDecimal(text)
	if !ok {
		return 0, false
	}

	var sats decimal.Decimal
	switch c.Primary {
	case domain.CurrencyUSD:
		if c.price.IsZero() {
			return 0, false
		}
		sats = d.Shift(8).Div(c.price.PerBTC())
	case domain.CurrencyBTC:
		sats = d.Shift(8)
	default:
		sats = d
	}

	sats = sats.Truncate(0)
	if sats.GreaterThan(maxSats) {
		return 0, false
	}
	return domain.Sats(sats.IntPart()), true
}

// SecondaryAmount is amount expressed in the secondary unit.
func (c Conversion) SecondaryAmount(amount domain.Sats) decimal.Decimal {
	return value(c.Secondary, c.price, amount)
}

// FormatSecondary renders amount in the secondary unit.
func (c Conversion) FormatSecondary(amount domain.Sats) string {
	return format(c.Secondary, c.price, amount)
}

func value(currency domain.DisplayCurrency, price domain.Price, amount domain.Sats) decimal.Decimal {
	switch currency {
	case domain.CurrencyUSD:
		return decimal.NewFromInt(int64(amount)).Mul(price.PerSat())
	case domain.CurrencyBTC:
		return amount.BTC()
	default:
		return decimal.NewFromInt(int64(amount))
	}
}

func format(currency domain.DisplayCurrency, price domain.Price, amount domain.Sats) string {
	if currency == domain.CurrencySats || !currency.Valid() {
		return strconv.FormatInt(int64(amount), 10)
	}
	return domain.FormatFixed(value(currency, price, amount), currency.Precision())
}

func parseDecimal(text string) (decimal.Decimal, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text == "." || strings.HasSuffix(text, ".") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
