package price

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchPrice(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin": {"usd": 64250.12}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 0, 1)
	q, err := client.FetchPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Price.String() != "64250.12" {
		t.Errorf("price = %s, want 64250.12", q.Price)
	}
	if q.Source != SourceCoinGecko {
		t.Errorf("source = %q", q.Source)
	}
	if gotQuery != "ids=bitcoin&vs_currencies=usd" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestFetchPriceMissingQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin": {}}`))
	}))
	defer server.Close()

	_, err := NewCoinGeckoClient(server.URL, 0, 0).FetchPrice(context.Background())
	if !errors.Is(err, ErrNoPrice) {
		t.Errorf("error = %v, want ErrNoPrice", err)
	}
}

func TestFetchPriceRejectsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin": {"usd": 0}}`))
	}))
	defer server.Close()

	if _, err := NewCoinGeckoClient(server.URL, 0, 0).FetchPrice(context.Background()); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestFetchPriceRetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"bitcoin": {"usd": 50000}}`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, 10*time.Millisecond, 2)
	q, err := client.FetchPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if q.Price.String() != "50000" {
		t.Errorf("price = %s", q.Price)
	}
}

func TestFetchPriceRetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewCoinGeckoClient(server.URL, time.Millisecond, 1).FetchPrice(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestFetchPriceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	if _, err := NewCoinGeckoClient(server.URL, 0, 2).FetchPrice(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBackoff(t *testing.T) {
	c := NewCoinGeckoClient("", 100*time.Millisecond, 3)

	tests := []struct {
		attempt    int
		retryAfter string
		want       time.Duration
	}{
		{1, "", 100 * time.Millisecond},
		{2, "", 200 * time.Millisecond},
		{3, "", 400 * time.Millisecond},
		{3, "2", 2 * time.Second},
		{1, "soon", 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := c.backoff(tt.attempt, tt.retryAfter); got != tt.want {
			t.Errorf("backoff(%d, %q) = %v, want %v", tt.attempt, tt.retryAfter, got, tt.want)
		}
	}
	if got := NewCoinGeckoClient("", 0, 1).backoff(1, ""); got != 10*time.Second {
		t.Errorf("default backoff = %v, want 10s", got)
	}
}
