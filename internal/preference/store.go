// Package preference persists each owner's display-currency choice.
package preference

import (
	"context"
	"sync"

	"github.com/mtlprog/wallet/internal/domain"
)

// Default is the currency an owner starts with.
const Default = domain.CurrencyUSD

// Store reads and cycles display-currency preferences keyed by owner (a device or user id).
type Store interface {
	Current(ctx context.Context, owner string) (domain.DisplayCurrency, error)
	Next(ctx context.Context, owner string) (domain.DisplayCurrency, error)
	Set(ctx context.Context, owner string, currency domain.DisplayCurrency) error
}

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	prefs map[string]domain.DisplayCurrency
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]domain.DisplayCurrency)}
}

func (s *MemoryStore) Current(_ context.Context, owner string) (domain.DisplayCurrency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(owner), nil
}

func (s *MemoryStore) Next(_ context.Context, owner string) (domain.DisplayCurrency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current(owner).Next()
	s.prefs[owner] = next
	return next, nil
}

func (s *MemoryStore) Set(_ context.Context, owner string, currency domain.DisplayCurrency) error {
	if !currency.Valid() {
		return domain.ErrUnknownCurrency
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[owner] = currency
	return nil
}

func (s *MemoryStore) current(owner string) domain.DisplayCurrency {
	if c, ok := s.prefs[owner]; ok {
		return c
	}
	return Default
}

// Bound is a Store fixed to one owner.
type Bound struct {
	store Store
	owner string
}

// For binds store to owner.
func For(store Store, owner string) Bound {
	return Bound{store: store, owner: owner}
}

// Current returns the owner's preference.
func (b Bound) Current(ctx context.Context) (domain.DisplayCurrency, error) {
	return b.store.Current(ctx, b.owner)
}

// Next advances the owner's preference and returns the new value.
func (b Bound) Next(ctx context.Context) (domain.DisplayCurrency, error) {
	return b.store.Next(ctx, b.owner)
}
