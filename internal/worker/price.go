package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/wallet/internal/price"
)

// PriceRefresher defines the interface for refreshing the BTC quote.
type PriceRefresher interface {
	Refresh(ctx context.Context) (price.Quote, error)
}

// AfterRefreshHook is called after each successful refresh.
type AfterRefreshHook interface {
	AfterRefresh(ctx context.Context, q price.Quote) error
}

// HookFunc adapts a function to AfterRefreshHook.
type HookFunc func(ctx context.Context, q price.Quote) error

func (f HookFunc) AfterRefresh(ctx context.Context, q price.Quote) error { return f(ctx, q) }

// NamedHook labels a hook in the worker's logs.
type NamedHook struct {
	Name string
	Hook AfterRefreshHook
}

// PriceWorker periodically refreshes the BTC price.
type PriceWorker struct {
	refresher PriceRefresher
	interval  time.Duration
	hooks     []NamedHook
}

// NewPriceWorker creates a new PriceWorker. Hooks run in order after each successful
// refresh; a failing hook does not stop the others.
func NewPriceWorker(refresher PriceRefresher, interval time.Duration, hooks ...NamedHook) *PriceWorker {
	return &PriceWorker{
		refresher: refresher,
		interval:  interval,
		hooks:     lo.Filter(hooks, func(h NamedHook, _ int) bool { return h.Hook != nil }),
	}
}

func (w *PriceWorker) refresh(ctx context.Context, phase string) {
	q, err := w.refresher.Refresh(ctx)
	if err != nil {
		slog.Error("PriceWorker: "+phase+" refresh failed", "error", err)
		return
	}
	slog.Info("PriceWorker: "+phase+" refresh completed", "per_btc", q.Price.String())

	for _, h := range w.hooks {
		if err := h.Hook.AfterRefresh(ctx, q); err != nil {
			slog.Error("PriceWorker: hook failed", "hook", h.Name, "error", err)
		} else {
			slog.Info("PriceWorker: hook completed", "hook", h.Name)
		}
	}
}

// Run starts the worker loop. It blocks until the context is cancelled.
func (w *PriceWorker) Run(ctx context.Context) {
	slog.Info("PriceWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.refresh(ctx, "initial")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("PriceWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, "periodic")
		}
	}
}
