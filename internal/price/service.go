package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoPrice indicates that no price could be determined.
var ErrNoPrice = errors.New("no price available")

// Fetcher retrieves a fresh quote from an upstream feed.
type Fetcher interface {
	FetchPrice(ctx context.Context) (Quote, error)
}

// Store shares quotes between processes.
type Store interface {
	Save(ctx context.Context, q Quote) error
	Latest(ctx context.Context) (Quote, error)
}

// Service serves the current BTC price: in-process cache first, then the shared store,
// then the upstream feed.
type Service struct {
	fetcher Fetcher
	store   Store
	cache   *priceCache
}

// NewService creates a price service. store may be nil.
func NewService(fetcher Fetcher, store Store, ttl time.Duration) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		cache:   newPriceCache(ttl),
	}
}

// Current returns a live quote, refreshing it when the cache has expired.
func (s *Service) Current(ctx context.Context) (Quote, error) {
	if q, ok := s.cache.get(); ok {
		return q, nil
	}

	if s.store != nil {
		q, err := s.store.Latest(ctx)
		switch {
		case err == nil:
			s.cache.set(q)
			return q, nil
		case !errors.Is(err, ErrNoPrice):
			slog.Warn("price: shared store unavailable", "error", err)
		}
	}

	return s.Refresh(ctx)
}

// Refresh fetches a new quote upstream and records it.
func (s *Service) Refresh(ctx context.Context) (Quote, error) {
	q, err := s.fetcher.FetchPrice(ctx)
	if err != nil {
		return Quote{}, fmt.Errorf("fetching price: %w", err)
	}

	s.cache.set(q)
	if s.store != nil {
		if err := s.store.Save(ctx, q); err != nil {
			slog.Warn("price: failed to share quote", "error", err)
		}
	}

	slog.Info("price: refreshed", "source", q.Source, "per_btc", q.Price.String())
	return q, nil
}

// Follow caches quotes published by other instances until updates closes or ctx ends.
func (s *Service) Follow(ctx context.Context, updates <-chan Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-updates:
			if !ok {
				return
			}
			if q.Price.IsZero() {
				continue
			}
			s.cache.set(q)
			slog.Debug("price: quote from peer", "source", q.Source, "per_btc", q.Price.String())
		}
	}
}
