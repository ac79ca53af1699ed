package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtlprog/wallet/internal/functions"
	"github.com/mtlprog/wallet/internal/i18n"
	"github.com/mtlprog/wallet/internal/phone"
)

type phoneInitRequest struct {
	Phone string `json:"phone"`
}

type phoneInitResponse struct {
	Next   string             `json:"next"`
	Params phone.VerifyParams `json:"params"`
	Copy   phone.Copy         `json:"copy"`
}

type phoneVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type phoneVerifyResponse struct {
	Verified bool   `json:"verified"`
	Phone    string `json:"phone"`
}

// PhoneInit handles POST /api/v1/phone/init. On success the response names the code
// entry screen and carries its params.
func (h *Handler) PhoneInit(w http.ResponseWriter, r *http.Request) {
	var req phoneInitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tr := h.registry.Translator(h.locale(r))
	var resp *phoneInitResponse
	screen := phone.NewInitScreen(h.caller, tr, func(_ context.Context, p phone.VerifyParams) error {
		next, err := phone.NewVerifyScreen(h.caller, tr, p, nil)
		if err != nil {
			return err
		}
		resp = &phoneInitResponse{Next: phone.ScreenPhoneVerify, Params: p, Copy: next.Copy()}
		return nil
	})
	screen.SetPhone(req.Phone)

	if err := screen.Submit(r.Context()); err != nil {
		writePhoneError(w, tr.T(i18n.KeyPhoneInitInvalid, nil), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PhoneVerify handles POST /api/v1/phone/verify.
func (h *Handler) PhoneVerify(w http.ResponseWriter, r *http.Request) {
	var req phoneVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tr := h.registry.Translator(h.locale(r))
	var resp *phoneVerifyResponse
	screen, err := phone.NewVerifyScreen(h.caller, tr, phone.VerifyParams{Phone: req.Phone},
		func(_ context.Context, v phone.Verified) error {
			resp = &phoneVerifyResponse{Verified: true, Phone: v.Phone}
			return nil
		})
	if err != nil {
		writePhoneError(w, tr.T(i18n.KeyPhoneInitInvalid, nil), err)
		return
	}
	screen.SetCode(req.Code)

	if err := screen.Submit(r.Context()); err != nil {
		writePhoneError(w, tr.T(i18n.KeyPhoneVerifInvalid, nil), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writePhoneError reports validation failures with localized text and passes remote
// function errors through as 502.
func writePhoneError(w http.ResponseWriter, invalidMsg string, err error) {
	if errors.Is(err, phone.ErrValidation) {
		writeError(w, http.StatusBadRequest, invalidMsg)
		return
	}
	var fnErr *functions.Error
	if errors.As(err, &fnErr) {
		slog.Warn("phone function failed", "function", fnErr.Function, "status", fnErr.Status, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fnErr.Message, "status": fnErr.Status})
		return
	}
	slog.Error("phone verification failed", "error", err)
	writeError(w, errorStatus(err), "internal error")
}
