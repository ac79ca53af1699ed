package conversion

import (
	"testing"

	"github.com/mtlprog/wallet/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		currency domain.DisplayCurrency
		in       string
		want     string
	}{
		{"sats digits", domain.CurrencySats, "1 000 sats", "1000"},
		{"sats truncates at point", domain.CurrencySats, "1.5", "1"},
		{"sats truncates at comma", domain.CurrencySats, "1,000", "1"},
		{"sats lone point", domain.CurrencySats, ".", ""},
		{"usd keeps point", domain.CurrencyUSD, "12.34", "12.34"},
		{"usd comma", domain.CurrencyUSD, "12,3", "12.3"},
		{"usd second point ends input", domain.CurrencyUSD, "1.2.3", "1.2"},
		{"usd comma then point", domain.CurrencyUSD, "1,000.50", "1.00"},
		{"btc second separator ends input", domain.CurrencyBTC, "0.5,75", "0.5"},
		{"usd precision cut", domain.CurrencyUSD, "1.2345", "1.23"},
		{"usd dollar sign", domain.CurrencyUSD, "$5", "5"},
		{"usd trailing point kept", domain.CurrencyUSD, "0.", "0."},
		{"btc lone point", domain.CurrencyBTC, ".", "."},
		{"btc precision", domain.CurrencyBTC, "0.123456789", "0.12345678"},
		{"empty", domain.CurrencyBTC, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.currency, tt.in); got != tt.want {
				t.Errorf("Normalize(%s, %q) = %q, want %q", tt.currency, tt.in, got, tt.want)
			}
		})
	}
}
