package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/functions"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort              string
	DatabaseURL           string
	RedisAddr             string
	CoinGeckoURL          string
	CoinGeckoDelay        time.Duration
	CoinGeckoRetryMax     int
	PriceTTL              time.Duration
	PriceWorkerInterval   time.Duration
	FunctionsURL          string
	FunctionsProject      string
	FunctionsRegion       string
	FunctionsRetryMax     int
	FunctionsRetryDelay   time.Duration
	DefaultLocale         string
	AdminAPIKey           string
	GoogleSheetID         string
	GoogleCredentialsJSON string
	RateCardAmounts       []domain.Sats
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		slog.Info("config: loaded env file", "file", f)
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	project := envOrDefault("FUNCTIONS_PROJECT", "")
	region := envOrDefault("FUNCTIONS_REGION", functions.DefaultRegion)
	if project == "" && os.Getenv("FUNCTIONS_URL") == "" {
		slog.Warn("neither FUNCTIONS_URL nor FUNCTIONS_PROJECT set, functions emulator calls will miss the project path")
	}

	return Config{
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		RedisAddr:             envOrDefault("REDIS_ADDR", ""),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:     envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		PriceTTL:              envOrDefaultDuration("PRICE_TTL", 60*time.Second),
		PriceWorkerInterval:   envOrDefaultDuration("PRICE_WORKER_INTERVAL", 5*time.Minute),
		FunctionsURL:          envOrDefault("FUNCTIONS_URL", functions.EmulatorURL(project, region)),
		FunctionsProject:      project,
		FunctionsRegion:       region,
		FunctionsRetryMax:     envOrDefaultInt("FUNCTIONS_RETRY_MAX", 0),
		FunctionsRetryDelay:   envOrDefaultDuration("FUNCTIONS_RETRY_DELAY", time.Second),
		DefaultLocale:         envOrDefault("DEFAULT_LOCALE", "en"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		GoogleSheetID:         envOrDefault("GOOGLE_SHEET_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		RateCardAmounts:       envOrDefaultSats("RATE_CARD_AMOUNTS", nil),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envOrDefaultSats parses a comma-separated list of non-negative sats amounts.
func envOrDefaultSats(key string, defaultVal []domain.Sats) []domain.Sats {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []domain.Sats
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n < 0 {
			slog.Warn("invalid sats list env var, using default", "key", key, "value", v)
			return defaultVal
		}
		out = append(out, domain.Sats(n))
	}
	return out
}
