package preference

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/wallet/internal/domain"
)

// PgStore implements Store with PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL preference store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Current(ctx context.Context, owner string) (domain.DisplayCurrency, error) {
	var c string
	err := s.pool.QueryRow(ctx,
		`SELECT currency FROM currency_preferences WHERE owner = $1`, owner).Scan(&c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Default, nil
		}
		return "", fmt.Errorf("getting preference for %s: %w", owner, err)
	}
	return domain.ParseDisplayCurrency(c)
}

// Next cycles the preference in a single statement so concurrent toggles never skip a unit.
func (s *PgStore) Next(ctx context.Context, owner string) (domain.DisplayCurrency, error) {
	var c string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO currency_preferences (owner, currency, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (owner) DO UPDATE SET
			currency = CASE currency_preferences.currency
				WHEN 'USD' THEN 'BTC'
				WHEN 'BTC' THEN 'sats'
				ELSE 'USD'
			END,
			updated_at = NOW()
		 RETURNING currency`,
		owner, string(Default.Next())).Scan(&c)
	if err != nil {
		return "", fmt.Errorf("cycling preference for %s: %w", owner, err)
	}
	return domain.ParseDisplayCurrency(c)
}

func (s *PgStore) Set(ctx context.Context, owner string, currency domain.DisplayCurrency) error {
	if !currency.Valid() {
		return domain.ErrUnknownCurrency
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO currency_preferences (owner, currency, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (owner) DO UPDATE SET currency = $2, updated_at = NOW()`,
		owner, string(currency))
	if err != nil {
		return fmt.Errorf("saving preference for %s: %w", owner, err)
	}
	return nil
}
