package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wallet/internal/api"
	"github.com/mtlprog/wallet/internal/config"
	"github.com/mtlprog/wallet/internal/database"
	"github.com/mtlprog/wallet/internal/export"
	"github.com/mtlprog/wallet/internal/functions"
	"github.com/mtlprog/wallet/internal/i18n"
	"github.com/mtlprog/wallet/internal/preference"
	"github.com/mtlprog/wallet/internal/price"
	"github.com/mtlprog/wallet/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg := config.Load()

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg config.Config) *cli.App {
	return &cli.App{
		Name:  "wallet",
		Usage: "bitcoin wallet amount, phone verification and translation service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API and the price worker",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			convertCommand(cfg),
			translateCommand(cfg),
			phoneCommand(cfg),
			exportCommand(cfg),
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	registry, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}

	// Preferences and quote history: PostgreSQL when configured, otherwise in memory
	var prefs preference.Store = preference.NewMemoryStore()
	var history *price.PgHistory
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			return fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		prefs = preference.NewPgStore(pool)
		history = price.NewPgHistory(pool)
	} else {
		slog.Warn("DATABASE_URL not set, currency preferences are kept in memory")
	}

	// Shared price store
	var store price.Store
	var redisStore *price.RedisStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("pinging redis: %w", err)
		}
		redisStore = price.NewRedisStore(rdb, cfg.PriceTTL)
		store = redisStore
	}

	coingecko := price.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	priceSvc := price.NewService(coingecko, store, cfg.PriceTTL)

	if redisStore != nil {
		updates, err := redisStore.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribing to price updates: %w", err)
		}
		go priceSvc.Follow(ctx, updates)
	}

	// Post-refresh hooks: quote history and rate card export
	var hooks []worker.NamedHook
	if history != nil {
		hooks = append(hooks, worker.NamedHook{Name: "history", Hook: worker.HookFunc(history.Record)})
	}
	if cfg.GoogleSheetID != "" {
		writer, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return fmt.Errorf("creating sheets writer: %w", err)
		}
		exportSvc := export.NewService(writer, cfg.RateCardAmounts)
		hooks = append(hooks, worker.NamedHook{Name: "sheets", Hook: worker.HookFunc(exportSvc.Export)})
	}

	priceWorker := worker.NewPriceWorker(priceSvc, cfg.PriceWorkerInterval, hooks...)
	go priceWorker.Run(ctx)

	fnClient := functions.NewClient(cfg.FunctionsURL, cfg.FunctionsRetryMax, cfg.FunctionsRetryDelay)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, price refresh endpoint is unprotected")
	}

	deps := api.Deps{
		Prices:          priceSvc,
		Registry:        registry,
		DefaultLocale:   i18n.Locale(cfg.DefaultLocale),
		Preferences:     prefs,
		Caller:          fnClient,
		RateCardAmounts: cfg.RateCardAmounts,
	}
	if history != nil {
		deps.History = history
	}
	srv := api.NewServer(cfg.HTTPPort, api.NewHandler(deps), cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
