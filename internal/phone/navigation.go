package phone

import (
	"context"
	"fmt"
)

// Screen names used by the default flow.
const (
	ScreenPhoneInit   = "PhoneInit"
	ScreenPhoneVerify = "PhoneVerif"
)

// Navigator is a stack navigator that opens screens by name.
type Navigator interface {
	Navigate(ctx context.Context, screen string, params map[string]any) error
}

// ParamGetter reads a navigation param of the current screen.
type ParamGetter interface {
	Param(name string) (any, bool)
}

// NavigateTo builds a transition that opens screen on nav, passing the phone along.
func NavigateTo[P VerifyParams | Verified](nav Navigator, screen string) Transition[P] {
	return func(ctx context.Context, params P) error {
		var phone string
		switch p := any(params).(type) {
		case VerifyParams:
			phone = p.Phone
		case Verified:
			phone = p.Phone
		}
		if err := nav.Navigate(ctx, screen, map[string]any{"phone": phone}); err != nil {
			return fmt.Errorf("navigating to %s: %w", screen, err)
		}
		return nil
	}
}

// VerifyParamsFrom reads the phone param the entry screen passed along.
func VerifyParamsFrom(params ParamGetter) (VerifyParams, error) {
	raw, ok := params.Param("phone")
	if !ok {
		return VerifyParams{}, fmt.Errorf("%w: phone param missing", ErrValidation)
	}
	phone, ok := raw.(string)
	if !ok {
		return VerifyParams{}, fmt.Errorf("%w: phone param is %T", ErrValidation, raw)
	}
	p := VerifyParams{Phone: phone}
	if err := check(p); err != nil {
		return VerifyParams{}, err
	}
	return p, nil
}

// MapParams adapts a plain params map.
type MapParams map[string]any

func (m MapParams) Param(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}
