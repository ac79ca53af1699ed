package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mtlprog/wallet/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{"HTTP_PORT", "DATABASE_URL", "COINGECKO_URL", "FUNCTIONS_URL", "FUNCTIONS_PROJECT", "FUNCTIONS_REGION", "FUNCTIONS_RETRY_MAX", "DEFAULT_LOCALE", "RATE_CARD_AMOUNTS", "PRICE_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.CoinGeckoURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("CoinGeckoURL = %q, want default", cfg.CoinGeckoURL)
	}
	if cfg.FunctionsURL != "http://localhost:5000" {
		t.Errorf("FunctionsURL = %q, want emulator", cfg.FunctionsURL)
	}
	if cfg.FunctionsRegion != "us-central1" {
		t.Errorf("FunctionsRegion = %q, want us-central1", cfg.FunctionsRegion)
	}
	if cfg.FunctionsRetryMax != 0 {
		t.Errorf("FunctionsRetryMax = %d, want 0", cfg.FunctionsRetryMax)
	}
	if cfg.DefaultLocale != "en" {
		t.Errorf("DefaultLocale = %q, want en", cfg.DefaultLocale)
	}
	if cfg.PriceTTL != 60*time.Second {
		t.Errorf("PriceTTL = %v, want 60s", cfg.PriceTTL)
	}
	if cfg.RateCardAmounts != nil {
		t.Errorf("RateCardAmounts = %v, want nil", cfg.RateCardAmounts)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("FUNCTIONS_URL", "https://us-central1-wallet.cloudfunctions.net")
	t.Setenv("FUNCTIONS_RETRY_MAX", "2")
	t.Setenv("PRICE_WORKER_INTERVAL", "30s")
	t.Setenv("RATE_CARD_AMOUNTS", "1000, 21000000")

	cfg := Load()

	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.FunctionsURL != "https://us-central1-wallet.cloudfunctions.net" {
		t.Errorf("FunctionsURL = %q", cfg.FunctionsURL)
	}
	if cfg.FunctionsRetryMax != 2 {
		t.Errorf("FunctionsRetryMax = %d, want 2", cfg.FunctionsRetryMax)
	}
	if cfg.PriceWorkerInterval != 30*time.Second {
		t.Errorf("PriceWorkerInterval = %v, want 30s", cfg.PriceWorkerInterval)
	}
	if len(cfg.RateCardAmounts) != 2 || cfg.RateCardAmounts[1] != domain.Sats(21_000_000) {
		t.Errorf("RateCardAmounts = %v", cfg.RateCardAmounts)
	}
}

func TestLoadFunctionsEmulatorProject(t *testing.T) {
	t.Setenv("FUNCTIONS_URL", "")
	os.Unsetenv("FUNCTIONS_URL")
	t.Setenv("FUNCTIONS_PROJECT", "wallet-dev")
	t.Setenv("FUNCTIONS_REGION", "europe-west1")

	cfg := Load()

	if cfg.FunctionsURL != "http://localhost:5000/wallet-dev/europe-west1" {
		t.Errorf("FunctionsURL = %q, want emulator project path", cfg.FunctionsURL)
	}
	if cfg.FunctionsProject != "wallet-dev" {
		t.Errorf("FunctionsProject = %q", cfg.FunctionsProject)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("COINGECKO_RETRY_MAX", "many")
	t.Setenv("PRICE_TTL", "soon")
	t.Setenv("RATE_CARD_AMOUNTS", "1000,-5")

	cfg := Load()

	if cfg.CoinGeckoRetryMax != 5 {
		t.Errorf("CoinGeckoRetryMax = %d, want default 5", cfg.CoinGeckoRetryMax)
	}
	if cfg.PriceTTL != 60*time.Second {
		t.Errorf("PriceTTL = %v, want default", cfg.PriceTTL)
	}
	if cfg.RateCardAmounts != nil {
		t.Errorf("RateCardAmounts = %v, want default", cfg.RateCardAmounts)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("DEFAULT_LOCALE=es\nHTTP_PORT=7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEFAULT_LOCALE", "")
	os.Unsetenv("DEFAULT_LOCALE")
	t.Setenv("HTTP_PORT", "9191")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg := Load()
	if cfg.DefaultLocale != "es" {
		t.Errorf("DefaultLocale = %q, want es from file", cfg.DefaultLocale)
	}
	if cfg.HTTPPort != "9191" {
		t.Errorf("HTTPPort = %q, existing env must win", cfg.HTTPPort)
	}
}
