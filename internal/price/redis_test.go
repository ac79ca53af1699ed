package price

import (
	"errors"
	"testing"
	"time"

	"github.com/mtlprog/wallet/internal/domain"
)

func TestQuoteEncoding(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := Quote{Price: domain.MustPrice("64250.12"), Source: SourceCoinGecko, FetchedAt: fetched}

	data, err := encodeQuote(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeQuote(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !out.Price.PerBTC().Equal(in.Price.PerBTC()) || out.Source != in.Source || !out.FetchedAt.Equal(fetched) {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestDecodeQuoteRejectsBadPayload(t *testing.T) {
	if _, err := decodeQuote([]byte(`{"perBtc":"0"}`)); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Errorf("error = %v, want ErrInvalidPrice", err)
	}
	if _, err := decodeQuote([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
