package preference

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mtlprog/wallet/internal/domain"
)

func TestMemoryStoreDefault(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.Current(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Default {
		t.Errorf("Current() = %s, want %s", got, Default)
	}
}

func TestMemoryStoreFullCycleReturnsToStart(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	start, _ := s.Current(ctx, "device-1")
	seen := []domain.DisplayCurrency{}
	for range len(domain.DisplayCurrencies) {
		c, err := s.Next(ctx, "device-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen = append(seen, c)
	}

	if seen[len(seen)-1] != start {
		t.Errorf("after full cycle = %s, want %s (seen %v)", seen[len(seen)-1], start, seen)
	}
	if seen[0] != domain.CurrencyBTC || seen[1] != domain.CurrencySats {
		t.Errorf("cycle order = %v, want [BTC sats USD]", seen)
	}
}

func TestMemoryStoreOwnersIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, _ = s.Next(ctx, "a")
	b, _ := s.Current(ctx, "b")
	if b != Default {
		t.Errorf("owner b = %s, want untouched default", b)
	}
}

func TestMemoryStoreSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "a", domain.CurrencySats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.Current(ctx, "a")
	if got != domain.CurrencySats {
		t.Errorf("Current() = %s, want sats", got)
	}

	if err := s.Set(ctx, "a", "EUR"); !errors.Is(err, domain.ErrUnknownCurrency) {
		t.Errorf("Set(EUR) error = %v, want ErrUnknownCurrency", err)
	}
}

func TestMemoryStoreConcurrentNext(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Next(ctx, "a")
		}()
	}
	wg.Wait()

	// 30 toggles over a cycle of 3 land back on the default
	got, _ := s.Current(ctx, "a")
	if got != Default {
		t.Errorf("Current() = %s, want %s", got, Default)
	}
}

func TestBound(t *testing.T) {
	ctx := context.Background()
	b := For(NewMemoryStore(), "a")

	next, err := b.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cur, _ := b.Current(ctx)
	if cur != next {
		t.Errorf("Current() = %s, want %s", cur, next)
	}
}
