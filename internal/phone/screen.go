// Package phone implements the two-step phone verification flow: request a code for a
// number, then confirm it. Screens advance through caller-supplied transitions.
package phone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mtlprog/wallet/internal/functions"
	"github.com/mtlprog/wallet/internal/i18n"
)

// ErrValidation wraps rejected phone numbers and codes.
var ErrValidation = errors.New("validation failed")

// Caller invokes a named remote function.
type Caller interface {
	Call(ctx context.Context, name string, payload, result any) error
}

// Translator resolves screen copy.
type Translator interface {
	T(key i18n.Key, opts map[string]any) string
}

// Transition moves the flow to the next screen with typed params.
type Transition[P any] func(ctx context.Context, params P) error

// VerifyParams is handed from the phone entry screen to the code entry screen.
type VerifyParams struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// Verified is handed to whatever follows a successful verification.
type Verified struct {
	Phone string `json:"phone"`
}

type initPayload struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type verifyPayload struct {
	Code  string `json:"code" validate:"required,numeric,min=4,max=8"`
	Phone string `json:"phone" validate:"required,e164"`
}

var validate = sync.OnceValue(func() *validator.Validate { return validator.New() })

func check(v any) error {
	if err := validate().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s %s", ErrValidation, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Copy is the static text a screen shows.
type Copy struct {
	Header      string `json:"header"`
	Text        string `json:"text"`
	Placeholder string `json:"placeholder,omitempty"`
	Next        string `json:"next"`
}

// InitScreen collects a phone number and requests a verification code for it.
type InitScreen struct {
	caller     Caller
	translator Translator
	next       Transition[VerifyParams]

	mu    sync.Mutex
	phone string
}

// NewInitScreen creates the phone entry screen.
func NewInitScreen(caller Caller, translator Translator, next Transition[VerifyParams]) *InitScreen {
	return &InitScreen{caller: caller, translator: translator, next: next}
}

// SetPhone stores the phone field's content.
func (s *InitScreen) SetPhone(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phone = strings.TrimSpace(phone)
}

// Copy returns the screen text.
func (s *InitScreen) Copy() Copy {
	return Copy{
		Header:      s.translator.T(i18n.KeyPhoneInitHeader, nil),
		Text:        s.translator.T(i18n.KeyPhoneInitText, nil),
		Placeholder: s.translator.T(i18n.KeyPhoneInitPhone, nil),
		Next:        s.translator.T(i18n.KeyNext, nil),
	}
}

// Submit requests a code for the entered number and, on success, runs the transition.
// A failed call is returned as is and the screen stays put.
func (s *InitScreen) Submit(ctx context.Context) error {
	s.mu.Lock()
	payload := initPayload{Phone: s.phone}
	s.mu.Unlock()

	if err := check(payload); err != nil {
		return err
	}
	if err := s.caller.Call(ctx, functions.InitPhoneNumber, payload, nil); err != nil {
		return fmt.Errorf("requesting verification code: %w", err)
	}

	slog.Info("phone: verification code requested")
	return s.next(ctx, VerifyParams{Phone: payload.Phone})
}

// VerifyScreen collects the code sent to the phone from VerifyParams.
type VerifyScreen struct {
	caller     Caller
	translator Translator
	params     VerifyParams
	next       Transition[Verified]

	mu   sync.Mutex
	code string
}

// NewVerifyScreen creates the code entry screen. Params must carry a valid phone.
func NewVerifyScreen(caller Caller, translator Translator, params VerifyParams, next Transition[Verified]) (*VerifyScreen, error) {
	if err := check(params); err != nil {
		return nil, err
	}
	return &VerifyScreen{caller: caller, translator: translator, params: params, next: next}, nil
}

// Params returns the params the screen was opened with.
func (s *VerifyScreen) Params() VerifyParams { return s.params }

// SetCode stores the code field's content.
func (s *VerifyScreen) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = strings.TrimSpace(code)
}

// Copy returns the screen text; the body names the phone the code went to.
func (s *VerifyScreen) Copy() Copy {
	return Copy{
		Header: s.translator.T(i18n.KeyPhoneVerifHeader, nil),
		Text:   s.translator.T(i18n.KeyPhoneVerifText, map[string]any{"phone": s.params.Phone}),
		Next:   s.translator.T(i18n.KeyNext, nil),
	}
}

// Submit confirms the code and, on success, runs the transition.
func (s *VerifyScreen) Submit(ctx context.Context) error {
	s.mu.Lock()
	payload := verifyPayload{Code: s.code, Phone: s.params.Phone}
	s.mu.Unlock()

	if err := check(payload); err != nil {
		return err
	}
	if err := s.caller.Call(ctx, functions.VerifyPhoneNumber, payload, nil); err != nil {
		return fmt.Errorf("verifying code: %w", err)
	}

	slog.Info("phone: number verified")
	return s.next(ctx, Verified{Phone: s.params.Phone})
}
