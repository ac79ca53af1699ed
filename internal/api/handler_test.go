package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/functions"
	"github.com/mtlprog/wallet/internal/i18n"
	"github.com/mtlprog/wallet/internal/preference"
	"github.com/mtlprog/wallet/internal/price"
)

type mockPrices struct {
	quote      price.Quote
	err        error
	refreshes  int
	refreshErr error
}

func (m *mockPrices) Current(_ context.Context) (price.Quote, error) {
	return m.quote, m.err
}

func (m *mockPrices) Refresh(_ context.Context) (price.Quote, error) {
	m.refreshes++
	return m.quote, m.refreshErr
}

type mockHistory struct {
	quotes []price.Quote
	limit  int
}

func (m *mockHistory) Recent(_ context.Context, limit int) ([]price.Quote, error) {
	m.limit = limit
	return m.quotes, nil
}

type call struct {
	name    string
	payload any
}

type mockCaller struct {
	calls []call
	err   error
}

func (m *mockCaller) Call(_ context.Context, name string, payload, _ any) error {
	m.calls = append(m.calls, call{name: name, payload: payload})
	return m.err
}

func newTestHandler(t *testing.T) (*Handler, *mockPrices, *mockCaller) {
	t.Helper()
	reg, err := i18n.Load()
	if err != nil {
		t.Fatalf("loading registry: %v", err)
	}
	prices := &mockPrices{quote: price.Quote{
		Price:     domain.MustPrice("50000"),
		Source:    "test",
		FetchedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	caller := &mockCaller{}
	h := NewHandler(Deps{
		Prices:          prices,
		Registry:        reg,
		Preferences:     preference.NewMemoryStore(),
		Caller:          caller,
		RateCardAmounts: []domain.Sats{1000, 150_000_000},
	})
	return h, prices, caller
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	NewMux(h, "").ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestGetPrice(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := serve(h, http.MethodGet, "/api/v1/price", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[priceResponse](t, w)
	if resp.PerBTC != "50000" || resp.PerSat != "0.0005" || resp.Source != "test" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetPriceUnavailable(t *testing.T) {
	h, prices, _ := newTestHandler(t)
	prices.err = price.ErrNoPrice

	w := serve(h, http.MethodGet, "/api/v1/price", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestConvert(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := serve(h, http.MethodGet, "/api/v1/convert?amount=150000000&currency=BTC", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[convertResponse](t, w)
	if resp.Text != "1.50000000" || resp.SecondaryCurrency != domain.CurrencyUSD || resp.SecondaryText != "75000.00" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Values[domain.CurrencySats] != "150000000" || resp.Values[domain.CurrencyUSD] != "75000.00" {
		t.Errorf("values = %v", resp.Values)
	}
}

func TestConvertDefaultsToUSD(t *testing.T) {
	h, _, _ := newTestHandler(t)

	resp := decode[convertResponse](t, serve(h, http.MethodGet, "/api/v1/convert?amount=20", ""))
	if resp.Currency != domain.CurrencyUSD || resp.Text != "0.01" || resp.SecondaryText != "0.00000020" {
		t.Errorf("response = %+v", resp)
	}
}

func TestConvertBadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, target := range []string{
		"/api/v1/convert",
		"/api/v1/convert?amount=-1",
		"/api/v1/convert?amount=1.5",
		"/api/v1/convert?amount=1&currency=EUR",
	} {
		if w := serve(h, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestParse(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		body     string
		text     string
		complete bool
		amount   domain.Sats
	}{
		{`{"currency":"USD","text":"0.01"}`, "0.01", true, 20},
		{`{"currency":"USD","text":"0."}`, "0.", false, 0},
		{`{"currency":"USD","text":""}`, "", false, 0},
		{`{"currency":"BTC","text":"1,5"}`, "1.5", true, 150_000_000},
		{`{"currency":"sats","text":"12a3"}`, "123", true, 123},
	}

	for _, tt := range tests {
		w := serve(h, http.MethodPost, "/api/v1/parse", tt.body)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.body, w.Code)
		}
		resp := decode[parseResponse](t, w)
		if resp.Text != tt.text || resp.Complete != tt.complete {
			t.Errorf("%s: text = %q complete = %v", tt.body, resp.Text, resp.Complete)
		}
		if tt.complete && (resp.Amount == nil || *resp.Amount != tt.amount) {
			t.Errorf("%s: amount = %v, want %d", tt.body, resp.Amount, tt.amount)
		}
		if !tt.complete && resp.Amount != nil {
			t.Errorf("%s: partial input produced amount %d", tt.body, *resp.Amount)
		}
	}
}

func TestParseBadRequest(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, body := range []string{`{"currency":"EUR","text":"1"}`, `not json`, `{"currency":"USD","extra":1}`} {
		if w := serve(h, http.MethodPost, "/api/v1/parse", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestTranslate(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		target string
		want   string
	}{
		{"/api/v1/translate/en/common.setAnAmount", "set an amount"},
		{"/api/v1/translate/es/PhoneInit.header", "Bienvenido"},
		{"/api/v1/translate/es/PhoneInit.invalid", "Please enter a valid phone number"},
		{"/api/v1/translate/fr/common.next", "Next"},
		{"/api/v1/translate/en/common.sats?count=1", "1 sat"},
		{"/api/v1/translate/en/common.sats?count=21", "21 sats"},
		{"/api/v1/translate/en/PhoneVerif.text?phone=%2B15551234567", "Enter the code sent to +15551234567"},
	}

	for _, tt := range tests {
		w := serve(h, http.MethodGet, tt.target, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.target, w.Code)
		}
		if got := decode[translateResponse](t, w).Text; got != tt.want {
			t.Errorf("%s: text = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestTranslateUnknownKey(t *testing.T) {
	h, _, _ := newTestHandler(t)

	if w := serve(h, http.MethodGet, "/api/v1/translate/en/nope.missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetContent(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := serve(h, http.MethodGet, "/api/v1/content/en/EarnScreen.earns.sections", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp := decode[i18n.Content](t, w); len(resp.Sections) == 0 {
		t.Error("expected sections")
	}

	if w := serve(h, http.MethodGet, "/api/v1/content/en/EarnScreen.nothing", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPreferences(t *testing.T) {
	h, _, _ := newTestHandler(t)

	if got := decode[preferenceResponse](t, serve(h, http.MethodGet, "/api/v1/preferences/dev", "")); got.Currency != domain.CurrencyUSD {
		t.Errorf("default = %s, want USD", got.Currency)
	}
	if got := decode[preferenceResponse](t, serve(h, http.MethodPost, "/api/v1/preferences/dev/toggle", "")); got.Currency != domain.CurrencyBTC {
		t.Errorf("after toggle = %s, want BTC", got.Currency)
	}
	if got := decode[preferenceResponse](t, serve(h, http.MethodPut, "/api/v1/preferences/dev", `{"currency":"sats"}`)); got.Currency != domain.CurrencySats {
		t.Errorf("after set = %s, want sats", got.Currency)
	}
	if w := serve(h, http.MethodPut, "/api/v1/preferences/dev", `{"currency":"EUR"}`); w.Code != http.StatusBadRequest {
		t.Errorf("set EUR status = %d, want 400", w.Code)
	}
}

func TestGetRateCard(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := serve(h, http.MethodGet, "/api/v1/ratecard.xlsx", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("RATES")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want header + 2", len(rows))
	}
}

func TestRefreshPrice(t *testing.T) {
	h, prices, _ := newTestHandler(t)

	if w := serve(h, http.MethodPost, "/api/v1/price/refresh", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	prices.refreshErr = errors.New("upstream down")
	if w := serve(h, http.MethodPost, "/api/v1/price/refresh", ""); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if prices.refreshes != 2 {
		t.Errorf("refreshes = %d, want 2", prices.refreshes)
	}
}

func TestPhoneInit(t *testing.T) {
	h, _, caller := newTestHandler(t)

	w := serve(h, http.MethodPost, "/api/v1/phone/init", `{"phone":"+15551234567"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	resp := decode[phoneInitResponse](t, w)
	if resp.Next != "PhoneVerif" || resp.Params.Phone != "+15551234567" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Copy.Text != "Enter the code sent to +15551234567" {
		t.Errorf("copy = %+v", resp.Copy)
	}
	if len(caller.calls) != 1 || caller.calls[0].name != functions.InitPhoneNumber {
		t.Errorf("calls = %+v", caller.calls)
	}
}

func TestPhoneInitLocalizedValidationError(t *testing.T) {
	h, _, caller := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/phone/init", strings.NewReader(`{"phone":"12"}`))
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9")
	w := httptest.NewRecorder()
	NewMux(h, "").ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	// es has no PhoneInit.invalid, so the message falls back to en
	if got := decode[map[string]string](t, w)["error"]; got != "Please enter a valid phone number" {
		t.Errorf("error = %q", got)
	}
	if len(caller.calls) != 0 {
		t.Errorf("invalid phone reached the function: %+v", caller.calls)
	}
}

func TestPhoneInitFunctionError(t *testing.T) {
	h, _, caller := newTestHandler(t)
	caller.err = &functions.Error{Function: functions.InitPhoneNumber, Status: "RESOURCE_EXHAUSTED", Message: "too many attempts"}

	w := serve(h, http.MethodPost, "/api/v1/phone/init", `{"phone":"+15551234567"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if got := decode[map[string]string](t, w); got["status"] != "RESOURCE_EXHAUSTED" || got["error"] != "too many attempts" {
		t.Errorf("body = %v", got)
	}
}

func TestPhoneVerify(t *testing.T) {
	h, _, caller := newTestHandler(t)

	w := serve(h, http.MethodPost, "/api/v1/phone/verify", `{"phone":"+15551234567","code":"123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if resp := decode[phoneVerifyResponse](t, w); !resp.Verified || resp.Phone != "+15551234567" {
		t.Errorf("response = %+v", resp)
	}
	if len(caller.calls) != 1 || caller.calls[0].name != functions.VerifyPhoneNumber {
		t.Errorf("calls = %+v", caller.calls)
	}
}

func TestPhoneVerifyErrors(t *testing.T) {
	h, _, caller := newTestHandler(t)

	if w := serve(h, http.MethodPost, "/api/v1/phone/verify", `{"phone":"+15551234567","code":"ab"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad code status = %d, want 400", w.Code)
	}
	if w := serve(h, http.MethodPost, "/api/v1/phone/verify", `{"phone":"","code":"1234"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing phone status = %d, want 400", w.Code)
	}

	caller.err = context.DeadlineExceeded
	if w := serve(h, http.MethodPost, "/api/v1/phone/verify", `{"phone":"+15551234567","code":"1234"}`); w.Code != http.StatusGatewayTimeout {
		t.Errorf("timeout status = %d, want 504", w.Code)
	}
}

func TestGetPriceHistory(t *testing.T) {
	h, prices, _ := newTestHandler(t)
	history := &mockHistory{quotes: []price.Quote{prices.quote, {Price: domain.MustPrice("49000"), Source: "test"}}}
	h.history = history

	w := serve(h, http.MethodGet, "/api/v1/price/history?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[[]priceResponse](t, w)
	if len(resp) != 2 || resp[1].PerBTC != "49000" {
		t.Errorf("response = %+v", resp)
	}
	if history.limit != 2 {
		t.Errorf("limit = %d, want 2", history.limit)
	}

	if w := serve(h, http.MethodGet, "/api/v1/price/history?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}
