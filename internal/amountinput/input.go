// Package amountinput keeps a canonical sats amount and the text a user is typing in sync
// through an explicit state machine over idle, editing and committing.
package amountinput

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mtlprog/wallet/internal/conversion"
	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/i18n"
)

// Preferences is the caller's display-currency store.
type Preferences interface {
	Current(ctx context.Context) (domain.DisplayCurrency, error)
	Next(ctx context.Context) (domain.DisplayCurrency, error)
}

// Translator resolves the placeholder text.
type Translator interface {
	T(key i18n.Key, opts map[string]any) string
}

// Focuser is the platform text field.
type Focuser interface {
	Focus()
	Blur()
}

// Keyboard registers a keyboard-dismiss listener and returns its deregistration func.
type Keyboard interface {
	OnDidHide(fn func()) (remove func())
}

// Options configures an Input. OnUpdateAmount is required.
type Options struct {
	Price          domain.Price
	Editable       bool
	OnUpdateAmount func(domain.Sats)
	OnBlur         func()
	ForceKeyboard  bool
	InitialAmount  domain.Sats
	// Currency overrides the preference store's current value when set.
	Currency      domain.DisplayCurrency
	Preferences   Preferences
	Translator    Translator
	Focuser       Focuser
	Keyboard      Keyboard
	HideSecondary bool
}

// Input is the amount field controller. Events may arrive from any goroutine; they are
// applied one at a time, and events raised from inside a callback run after it returns.
type Input struct {
	onUpdate      func(domain.Sats)
	onBlur        func()
	prefs         Preferences
	translator    Translator
	focuser       Focuser
	hideSecondary bool

	mu          sync.Mutex
	state       State
	amount      domain.Sats
	raw         string
	currency    domain.DisplayCurrency
	table       conversion.Table
	editable    bool
	force       bool
	focused     bool
	initial     domain.Sats
	queue       []Event
	dispatching bool
	closed      bool
	unsubscribe func()
}

// New builds an Input and registers its keyboard listener. Close releases it.
func New(ctx context.Context, opts Options) (*Input, error) {
	if opts.OnUpdateAmount == nil {
		return nil, fmt.Errorf("amountinput: OnUpdateAmount is required")
	}

	currency := opts.Currency
	if currency == "" && opts.Preferences != nil {
		c, err := opts.Preferences.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading currency preference: %w", err)
		}
		currency = c
	}
	if !currency.Valid() {
		currency = domain.CurrencyUSD
	}

	in := &Input{
		onUpdate:      opts.OnUpdateAmount,
		onBlur:        opts.OnBlur,
		prefs:         opts.Preferences,
		translator:    opts.Translator,
		focuser:       opts.Focuser,
		hideSecondary: opts.HideSecondary,
		state:         StateIdle,
		amount:        opts.InitialAmount,
		initial:       opts.InitialAmount,
		currency:      currency,
		table:         conversion.NewTable(opts.Price),
		editable:      opts.Editable,
		force:         opts.ForceKeyboard,
	}

	if opts.Keyboard != nil {
		in.unsubscribe = opts.Keyboard.OnDidHide(func() { in.Send(KeyboardHidden{}) })
	}

	in.mu.Lock()
	effects := in.autoFocus()
	in.mu.Unlock()
	run(effects)

	return in, nil
}

// Close deregisters the keyboard listener. Later events are ignored.
func (in *Input) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	unsubscribe := in.unsubscribe
	in.unsubscribe = nil
	in.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Send enqueues ev and, unless a dispatch is already running, drains the queue.
func (in *Input) Send(ev Event) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.queue = append(in.queue, ev)
	if in.dispatching {
		in.mu.Unlock()
		return
	}
	in.dispatching = true

	for len(in.queue) > 0 {
		next := in.queue[0]
		in.queue = in.queue[1:]

		from := in.state
		effects := in.apply(next)
		effects = append(effects, in.autoFocus()...)
		slog.Debug("amountinput: event", "event", next.event(), "from", from, "to", in.state, "amount", in.amount)

		in.mu.Unlock()
		in.runEffects(effects)
		in.mu.Lock()

		if in.state == StateCommitting {
			in.state = StateEditing
		}
	}

	in.dispatching = false
	in.mu.Unlock()
}

// HandleChange normalizes a keystroke and feeds it to the machine.
func (in *Input) HandleChange(text string) { in.Send(TextChanged{Text: text}) }

// SetInitialAmount resets the amount when the parent's initial amount actually changes.
func (in *Input) SetInitialAmount(amount domain.Sats) {
	in.mu.Lock()
	changed := amount != in.initial
	in.initial = amount
	in.mu.Unlock()

	if changed {
		in.Send(ExternalReset{Amount: amount})
	}
}

// SetPrice delivers a new quote.
func (in *Input) SetPrice(price domain.Price) { in.Send(PriceChanged{Price: price}) }

// SetEditable toggles input.
func (in *Input) SetEditable(editable bool) { in.Send(EditableChanged{Editable: editable}) }

// SetForceKeyboard toggles prompting for a missing amount.
func (in *Input) SetForceKeyboard(force bool) { in.Send(ForceKeyboardChanged{Force: force}) }

// ToggleCurrency advances the preference store and switches the display unit.
// Without a store the unit cycles locally.
func (in *Input) ToggleCurrency(ctx context.Context) error {
	var next domain.DisplayCurrency
	if in.prefs != nil {
		c, err := in.prefs.Next(ctx)
		if err != nil {
			return fmt.Errorf("cycling currency preference: %w", err)
		}
		next = c
	} else {
		in.mu.Lock()
		next = in.currency.Next()
		in.mu.Unlock()
	}
	in.Send(CurrencySwitched{Currency: next})
	return nil
}

// Amount returns the canonical amount.
func (in *Input) Amount() domain.Sats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.amount
}

// State returns the current machine state.
func (in *Input) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// apply performs the transition for ev and returns callbacks to run unlocked.
func (in *Input) apply(ev Event) []func() {
	switch e := ev.(type) {
	case TextChanged:
		if !in.editable {
			return nil
		}
		in.raw = conversion.Normalize(in.currency, e.Text)
		in.state = StateEditing
		amount, ok := in.table.For(in.currency).Parse(in.raw)
		if !ok {
			return nil
		}
		in.amount = amount
		in.state = StateCommitting
		return []func(){func() { in.onUpdate(amount) }}

	case ExternalReset:
		in.amount = e.Amount
		in.raw = ""
		in.state = StateIdle

	case CurrencySwitched:
		if e.Currency.Valid() {
			in.currency = e.Currency
		}
		in.raw = ""
		in.state = StateIdle

	case PriceChanged:
		in.table = conversion.NewTable(e.Price)

	case EditableChanged:
		in.editable = e.Editable

	case ForceKeyboardChanged:
		in.force = e.Force

	case Focused:
		in.focused = true

	case KeyboardHidden:
		if !in.focused {
			return nil
		}
		in.focused = false
		var effects []func()
		if in.focuser != nil {
			effects = append(effects, in.focuser.Blur)
		}
		return append(effects, in.blurCallback()...)

	case Blurred:
		if !in.focused {
			return nil
		}
		in.focused = false
		return in.blurCallback()
	}
	return nil
}

func (in *Input) blurCallback() []func() {
	if in.onBlur == nil {
		return nil
	}
	return []func(){in.onBlur}
}

// autoFocus focuses the field when the caller forces the keyboard and no amount is shown.
func (in *Input) autoFocus() []func() {
	if !in.force || in.focused || in.focuser == nil {
		return nil
	}
	if !isBlank(in.displayText()) {
		return nil
	}
	in.focused = true
	return []func(){in.focuser.Focus}
}

// runEffects runs effects with the lock released. A panicking callback ends the dispatch
// and leaves the machine editing so later events are still applied.
func (in *Input) runEffects(effects []func()) {
	defer func() {
		if r := recover(); r != nil {
			in.mu.Lock()
			in.dispatching = false
			if in.state == StateCommitting {
				in.state = StateEditing
			}
			in.mu.Unlock()
			panic(r)
		}
	}()
	run(effects)
}

func run(effects []func()) {
	for _, fn := range effects {
		fn()
	}
}
