package amountinput

import "github.com/mtlprog/wallet/internal/domain"

// State is the phase of the text/amount synchronization.
type State int

const (
	// StateIdle shows the canonical amount formatted in the current unit.
	StateIdle State = iota
	// StateEditing shows the raw text the user is typing.
	StateEditing
	// StateCommitting is held while OnUpdateAmount runs for a freshly parsed amount.
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateCommitting:
		return "committing"
	}
	return "unknown"
}

// Event drives the state machine.
type Event interface {
	event() string
}

// TextChanged carries a keystroke's new field content.
type TextChanged struct{ Text string }

// ExternalReset replaces the amount from outside, e.g. when the parent clears a form.
type ExternalReset struct{ Amount domain.Sats }

// CurrencySwitched changes the display unit.
type CurrencySwitched struct{ Currency domain.DisplayCurrency }

// PriceChanged delivers a new quote.
type PriceChanged struct{ Price domain.Price }

// KeyboardHidden is raised by the platform when the system keyboard is dismissed.
type KeyboardHidden struct{}

// Focused is raised when the field gains focus.
type Focused struct{}

// Blurred is raised when the field loses focus or editing ends.
type Blurred struct{}

// EditableChanged toggles whether the field accepts input.
type EditableChanged struct{ Editable bool }

// ForceKeyboardChanged toggles the prompt-for-amount behaviour.
type ForceKeyboardChanged struct{ Force bool }

func (TextChanged) event() string          { return "text_changed" }
func (ExternalReset) event() string        { return "external_reset" }
func (CurrencySwitched) event() string     { return "currency_switched" }
func (PriceChanged) event() string         { return "price_changed" }
func (KeyboardHidden) event() string       { return "keyboard_hidden" }
func (Focused) event() string              { return "focused" }
func (Blurred) event() string              { return "blurred" }
func (EditableChanged) event() string      { return "editable_changed" }
func (ForceKeyboardChanged) event() string { return "force_keyboard_changed" }
