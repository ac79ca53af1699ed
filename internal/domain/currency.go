package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

// ErrInvalidPrice indicates a price that is zero, negative or not a number.
var ErrInvalidPrice = errors.New("invalid price")

// ErrUnknownCurrency indicates a display currency outside the supported set.
var ErrUnknownCurrency = errors.New("unknown display currency")

// DisplayCurrency is the unit shown and edited in the amount field.
type DisplayCurrency string

const (
	CurrencySats DisplayCurrency = "sats"
	CurrencyBTC  DisplayCurrency = "BTC"
	CurrencyUSD  DisplayCurrency = "USD"
)

// DisplayCurrencies lists the supported units in toggle order.
var DisplayCurrencies = []DisplayCurrency{CurrencyUSD, CurrencyBTC, CurrencySats}

// ParseDisplayCurrency accepts the canonical spelling and lower-case variants.
func ParseDisplayCurrency(s string) (DisplayCurrency, error) {
	switch s {
	case "sats", "SATS", "Sats":
		return CurrencySats, nil
	case "BTC", "btc":
		return CurrencyBTC, nil
	case "USD", "usd":
		return CurrencyUSD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
}

// Valid reports whether c is one of the supported display currencies.
func (c DisplayCurrency) Valid() bool {
	switch c {
	case CurrencySats, CurrencyBTC, CurrencyUSD:
		return true
	}
	return false
}

// Next returns the currency following c in toggle order: USD -> BTC -> sats -> USD.
// Unknown values restart the cycle at USD.
func (c DisplayCurrency) Next() DisplayCurrency {
	switch c {
	case CurrencyUSD:
		return CurrencyBTC
	case CurrencyBTC:
		return CurrencySats
	default:
		return CurrencyUSD
	}
}

// Precision is the number of fraction digits shown for the unit.
func (c DisplayCurrency) Precision() int32 {
	switch c {
	case CurrencyBTC:
		return 8
	case CurrencyUSD:
		return 2
	default:
		return 0
	}
}

// Sats is an amount in the smallest bitcoin unit.
type Sats int64

// BTC returns the amount expressed in bitcoin.
func (s Sats) BTC() decimal.Decimal {
	return decimal.New(int64(s), -8)
}

// Price is the USD value of one bitcoin.
type Price struct {
	perBTC decimal.Decimal
}

// NewPrice validates and wraps a per-BTC quote.
func NewPrice(perBTC decimal.Decimal) (Price, error) {
	if !perBTC.IsPositive() {
		return Price{}, fmt.Errorf("%w: %s", ErrInvalidPrice, perBTC)
	}
	return Price{perBTC: perBTC}, nil
}

// ParsePrice parses a decimal quote string.
func ParsePrice(perBTC string) (Price, error) {
	d, err := decimal.NewFromString(perBTC)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidPrice, perBTC)
	}
	return NewPrice(d)
}

// MustPrice panics on an invalid quote. Intended for tests and constants.
func MustPrice(perBTC string) Price {
	p, err := NewPrice(SafeParse(perBTC))
	if err != nil {
		panic(err)
	}
	return p
}

// PerBTC returns the quote for one bitcoin.
func (p Price) PerBTC() decimal.Decimal { return p.perBTC }

// PerSat returns the quote for one satoshi.
func (p Price) PerSat() decimal.Decimal {
	return p.perBTC.Shift(-8)
}

// IsZero reports whether the price was never set.
func (p Price) IsZero() bool { return p.perBTC.IsZero() }

func (p Price) String() string { return p.perBTC.String() }
