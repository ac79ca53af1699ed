package price

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wallet/internal/domain"
)

// DefaultHistoryLimit caps Recent when no limit is given.
const DefaultHistoryLimit = 100

// PgHistory records every refreshed quote in PostgreSQL.
type PgHistory struct {
	pool *pgxpool.Pool
}

// NewPgHistory creates a new PostgreSQL quote history.
func NewPgHistory(pool *pgxpool.Pool) *PgHistory {
	return &PgHistory{pool: pool}
}

// Record appends q. A quote already stored for the same source and time is ignored.
func (h *PgHistory) Record(ctx context.Context, q Quote) error {
	if q.Price.IsZero() {
		return fmt.Errorf("recording quote: %w", domain.ErrInvalidPrice)
	}
	fetchedAt := q.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO price_quotes (source, per_btc, fetched_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source, fetched_at) DO NOTHING`,
		q.Source, q.Price.PerBTC(), fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording quote from %s: %w", q.Source, err)
	}
	return nil
}

// Recent returns up to limit quotes, newest first.
func (h *PgHistory) Recent(ctx context.Context, limit int) ([]Quote, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := h.pool.Query(ctx,
		`SELECT source, per_btc, fetched_at FROM price_quotes ORDER BY fetched_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent quotes: %w", err)
	}

	quotes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Quote, error) {
		var (
			source    string
			perBTC    decimal.Decimal
			fetchedAt time.Time
		)
		if err := row.Scan(&source, &perBTC, &fetchedAt); err != nil {
			return Quote{}, err
		}
		p, err := domain.NewPrice(perBTC)
		if err != nil {
			return Quote{}, err
		}
		return Quote{Price: p, Source: source, FetchedAt: fetchedAt}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning quotes: %w", err)
	}
	return quotes, nil
}
