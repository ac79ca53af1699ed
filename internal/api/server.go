package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(handler, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers every route on a fresh ServeMux.
func NewMux(handler *Handler, adminAPIKey string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/price", handler.GetPrice)
	mux.HandleFunc("GET /api/v1/convert", handler.Convert)
	mux.HandleFunc("POST /api/v1/parse", handler.Parse)
	mux.HandleFunc("GET /api/v1/translate/{locale}/{key}", handler.Translate)
	mux.HandleFunc("GET /api/v1/content/{locale}/{path}", handler.GetContent)
	mux.HandleFunc("POST /api/v1/phone/init", handler.PhoneInit)
	mux.HandleFunc("POST /api/v1/phone/verify", handler.PhoneVerify)
	mux.HandleFunc("GET /api/v1/ratecard.xlsx", handler.GetRateCard)

	if handler.history != nil {
		mux.HandleFunc("GET /api/v1/price/history", handler.GetPriceHistory)
	}
	if handler.prefs != nil {
		mux.HandleFunc("GET /api/v1/preferences/{owner}", handler.GetPreference)
		mux.HandleFunc("PUT /api/v1/preferences/{owner}", handler.SetPreference)
		mux.HandleFunc("POST /api/v1/preferences/{owner}/toggle", handler.TogglePreference)
	}

	refreshHandler := http.HandlerFunc(handler.RefreshPrice)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/price/refresh", requireAuth(adminAPIKey, refreshHandler))
	} else {
		mux.Handle("POST /api/v1/price/refresh", refreshHandler)
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
