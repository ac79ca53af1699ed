package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/wallet/internal/conversion"
	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/export"
	"github.com/mtlprog/wallet/internal/i18n"
	"github.com/mtlprog/wallet/internal/phone"
	"github.com/mtlprog/wallet/internal/preference"
	"github.com/mtlprog/wallet/internal/price"
)

const maxBodyBytes = 1 << 16

// PriceSource serves the current BTC quote.
type PriceSource interface {
	Current(ctx context.Context) (price.Quote, error)
	Refresh(ctx context.Context) (price.Quote, error)
}

// PriceHistory lists recorded quotes, newest first.
type PriceHistory interface {
	Recent(ctx context.Context, limit int) ([]price.Quote, error)
}

// Deps are the services behind the HTTP API. History and Preferences may be nil.
type Deps struct {
	Prices          PriceSource
	History         PriceHistory
	Registry        *i18n.Registry
	DefaultLocale   i18n.Locale
	Preferences     preference.Store
	Caller          phone.Caller
	RateCardAmounts []domain.Sats
}

// Handler provides HTTP endpoints for the wallet API.
type Handler struct {
	prices        PriceSource
	history       PriceHistory
	registry      *i18n.Registry
	defaultLocale i18n.Locale
	prefs         preference.Store
	caller        phone.Caller
	amounts       []domain.Sats
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	locale := d.DefaultLocale
	if locale == "" {
		locale = "en"
	}
	amounts := d.RateCardAmounts
	if len(amounts) == 0 {
		amounts = export.DefaultAmounts
	}
	return &Handler{
		prices:        d.Prices,
		history:       d.History,
		registry:      d.Registry,
		defaultLocale: locale,
		prefs:         d.Preferences,
		caller:        d.Caller,
		amounts:       amounts,
	}
}

type priceResponse struct {
	PerBTC    string    `json:"perBtc"`
	PerSat    string    `json:"perSat"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

func newPriceResponse(q price.Quote) priceResponse {
	return priceResponse{
		PerBTC:    q.Price.String(),
		PerSat:    q.Price.PerSat().String(),
		Source:    q.Source,
		FetchedAt: q.FetchedAt,
	}
}

// currentPrice writes an error response and returns false when no quote is available.
func (h *Handler) currentPrice(w http.ResponseWriter, r *http.Request) (price.Quote, bool) {
	q, err := h.prices.Current(r.Context())
	if err != nil {
		slog.Error("failed to get current price", "error", err)
		writeError(w, http.StatusServiceUnavailable, "price unavailable")
		return price.Quote{}, false
	}
	return q, true
}

// GetPrice handles GET /api/v1/price.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q, ok := h.currentPrice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newPriceResponse(q))
}

// RefreshPrice handles POST /api/v1/price/refresh.
func (h *Handler) RefreshPrice(w http.ResponseWriter, r *http.Request) {
	q, err := h.prices.Refresh(r.Context())
	if err != nil {
		slog.Error("failed to refresh price", "error", err)
		writeError(w, http.StatusBadGateway, "failed to refresh price")
		return
	}
	writeJSON(w, http.StatusOK, newPriceResponse(q))
}

// GetPriceHistory handles GET /api/v1/price/history?limit=<n>.
func (h *Handler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	quotes, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("failed to get price history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(quotes, func(q price.Quote, _ int) priceResponse {
		return newPriceResponse(q)
	}))
}

type convertResponse struct {
	Amount            domain.Sats                       `json:"amount"`
	Currency          domain.DisplayCurrency            `json:"currency"`
	Text              string                            `json:"text"`
	SecondaryCurrency domain.DisplayCurrency            `json:"secondaryCurrency"`
	SecondaryText     string                            `json:"secondaryText"`
	PerBTC            string                            `json:"perBtc"`
	Values            map[domain.DisplayCurrency]string `json:"values"`
}

// Convert handles GET /api/v1/convert?amount=<sats>&currency=<unit>.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be a non-negative integer number of sats")
		return
	}
	currency := domain.CurrencyUSD
	if c := r.URL.Query().Get("currency"); c != "" {
		if currency, err = domain.ParseDisplayCurrency(c); err != nil {
			writeError(w, http.StatusBadRequest, "currency must be one of sats, BTC, USD")
			return
		}
	}

	q, ok := h.currentPrice(w, r)
	if !ok {
		return
	}

	sats := domain.Sats(amount)
	table := conversion.NewTable(q.Price)
	conv := table.For(currency)
	values := make(map[domain.DisplayCurrency]string, len(domain.DisplayCurrencies))
	for _, c := range domain.DisplayCurrencies {
		values[c] = table.For(c).Format(sats)
	}

	writeJSON(w, http.StatusOK, convertResponse{
		Amount:            sats,
		Currency:          currency,
		Text:              conv.Format(sats),
		SecondaryCurrency: conv.Secondary,
		SecondaryText:     conv.FormatSecondary(sats),
		PerBTC:            q.Price.String(),
		Values:            values,
	})
}

type parseRequest struct {
	Currency string `json:"currency"`
	Text     string `json:"text"`
}

type parseResponse struct {
	Currency domain.DisplayCurrency `json:"currency"`
	Text     string                 `json:"text"`
	Complete bool                   `json:"complete"`
	Amount   *domain.Sats           `json:"amount"`
}

// Parse handles POST /api/v1/parse. Partial input is reported with complete=false
// and a null amount.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	currency, err := domain.ParseDisplayCurrency(req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "currency must be one of sats, BTC, USD")
		return
	}

	q, ok := h.currentPrice(w, r)
	if !ok {
		return
	}

	text := conversion.Normalize(currency, req.Text)
	resp := parseResponse{Currency: currency, Text: text}
	if amount, ok := conversion.NewTable(q.Price).For(currency).Parse(text); ok {
		resp.Complete = true
		resp.Amount = &amount
	}
	writeJSON(w, http.StatusOK, resp)
}

type translateResponse struct {
	Locale i18n.Locale `json:"locale"`
	Key    i18n.Key    `json:"key"`
	Text   string      `json:"text"`
}

// Translate handles GET /api/v1/translate/{locale}/{key}. Query parameters become
// interpolation values; a numeric count selects the plural form.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	locale := i18n.Locale(r.PathValue("locale"))
	key, err := h.registry.Key(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown translation key")
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		Locale: locale,
		Key:    key,
		Text:   h.registry.Translate(locale, key, queryOptions(r)),
	})
}

// GetContent handles GET /api/v1/content/{locale}/{path}.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, ok := h.registry.QuizSections(i18n.Locale(r.PathValue("locale")), r.PathValue("path"), queryOptions(r))
	if !ok {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func queryOptions(r *http.Request) map[string]any {
	query := r.URL.Query()
	if len(query) == 0 {
		return nil
	}
	opts := make(map[string]any, len(query))
	for name := range query {
		v := query.Get(name)
		if name == "count" {
			if n, err := strconv.Atoi(v); err == nil {
				opts[name] = n
				continue
			}
		}
		opts[name] = v
	}
	return opts
}

type preferenceResponse struct {
	Owner    string                 `json:"owner"`
	Currency domain.DisplayCurrency `json:"currency"`
}

// GetPreference handles GET /api/v1/preferences/{owner}.
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	c, err := h.prefs.Current(r.Context(), owner)
	if err != nil {
		slog.Error("failed to get preference", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, preferenceResponse{Owner: owner, Currency: c})
}

// TogglePreference handles POST /api/v1/preferences/{owner}/toggle.
func (h *Handler) TogglePreference(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	c, err := h.prefs.Next(r.Context(), owner)
	if err != nil {
		slog.Error("failed to toggle preference", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, preferenceResponse{Owner: owner, Currency: c})
}

// SetPreference handles PUT /api/v1/preferences/{owner}.
func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	var req struct {
		Currency string `json:"currency"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := domain.ParseDisplayCurrency(req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "currency must be one of sats, BTC, USD")
		return
	}
	if err := h.prefs.Set(r.Context(), owner, c); err != nil {
		slog.Error("failed to set preference", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, preferenceResponse{Owner: owner, Currency: c})
}

// GetRateCard handles GET /api/v1/ratecard.xlsx.
func (h *Handler) GetRateCard(w http.ResponseWriter, r *http.Request) {
	q, ok := h.currentPrice(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ratecard.xlsx"`)
	if err := export.WriteWorkbook(w, export.BuildRateCard(q, h.amounts)); err != nil {
		slog.Error("failed to write rate card", "error", err)
	}
}

// locale picks the request locale from ?locale= or Accept-Language.
func (h *Handler) locale(r *http.Request) i18n.Locale {
	if l := r.URL.Query().Get("locale"); l != "" {
		return i18n.Locale(l)
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		tag, _, _ := strings.Cut(al, ",")
		tag, _, _ = strings.Cut(tag, ";")
		if tag = strings.TrimSpace(tag); tag != "" && tag != "*" {
			return i18n.Locale(tag)
		}
	}
	return h.defaultLocale
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, phone.ErrValidation), errors.Is(err, domain.ErrUnknownCurrency):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
