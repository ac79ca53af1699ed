package amountinput

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/i18n"
)

// KeyboardType is the soft keyboard layout to request.
type KeyboardType string

const (
	KeyboardNumberPad  KeyboardType = "number-pad"
	KeyboardDecimalPad KeyboardType = "decimal-pad"
)

// View is a snapshot of everything the field needs to draw itself.
type View struct {
	Text              string
	Placeholder       string
	RateHint          string
	SwitchLabel       string
	Amount            domain.Sats
	Currency          domain.DisplayCurrency
	SecondaryCurrency domain.DisplayCurrency
	SecondaryText     string
	ShowSecondary     bool
	LeftAdornment     string
	RightAdornment    string
	Dimmed            bool
	Keyboard          KeyboardType
	Editable          bool
	Focused           bool
	State             State
}

// View returns the current view model.
func (in *Input) View() View {
	in.mu.Lock()
	defer in.mu.Unlock()

	conv := in.table.For(in.currency)
	v := View{
		Text:              in.displayText(),
		Amount:            in.amount,
		Currency:          in.currency,
		SecondaryCurrency: conv.Secondary,
		SecondaryText:     conv.FormatSecondary(in.amount),
		ShowSecondary:     !in.hideSecondary,
		Keyboard:          KeyboardDecimalPad,
		Editable:          in.editable,
		Focused:           in.focused,
		State:             in.state,
	}
	if in.translator != nil {
		v.Placeholder = in.translator.T(i18n.KeySetAnAmount, nil)
		v.RateHint = in.translator.T(i18n.KeyAmountRateHint, map[string]any{
			"price": in.table.Price().PerBTC().StringFixed(domain.CurrencyUSD.Precision()),
		})
		v.SwitchLabel = in.translator.T(i18n.KeyAmountSwitchTarget, map[string]any{
			"currency": string(in.currency.Next()),
		})
	}

	switch in.currency {
	case domain.CurrencyUSD:
		v.LeftAdornment = "$"
		v.Dimmed = in.amount == 0
	case domain.CurrencyBTC:
		v.RightAdornment = "BTC"
		v.Dimmed = in.amount == 0
	case domain.CurrencySats:
		v.RightAdornment = "sats"
		v.Dimmed = in.raw == ""
		v.Keyboard = KeyboardNumberPad
	}
	return v
}

// displayText is the raw text while editing and the formatted amount otherwise.
// A zero amount at rest renders empty so the placeholder shows.
func (in *Input) displayText() string {
	if in.state != StateIdle {
		return in.raw
	}
	if in.amount == 0 {
		return ""
	}
	return in.table.For(in.currency).Format(in.amount)
}

func isBlank(text string) bool {
	if text == "" || text == "." {
		return true
	}
	d, err := decimal.NewFromString(text)
	return err == nil && d.IsZero()
}
