package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/wallet/internal/domain"
)

// SourceCoinGecko names quotes fetched from CoinGecko.
const SourceCoinGecko = "coingecko"

// CoinGeckoClient fetches the bitcoin price in USD from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// simplePrice is the /simple/price payload: {"bitcoin":{"usd":50000}}.
type simplePrice struct {
	Bitcoin *struct {
		USD json.Number `json:"usd"`
	} `json:"bitcoin"`
}

// FetchPrice returns the current USD price of one bitcoin.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context) (Quote, error) {
	body, err := c.get(ctx, c.baseURL+"/simple/price?ids=bitcoin&vs_currencies=usd")
	if err != nil {
		return Quote{}, err
	}

	var sp simplePrice
	if err := json.Unmarshal(body, &sp); err != nil {
		return Quote{}, fmt.Errorf("parsing CoinGecko response: %w", err)
	}
	if sp.Bitcoin == nil || sp.Bitcoin.USD == "" {
		return Quote{}, fmt.Errorf("CoinGecko response has no bitcoin/usd price: %w", ErrNoPrice)
	}
	p, err := domain.ParsePrice(sp.Bitcoin.USD.String())
	if err != nil {
		return Quote{}, fmt.Errorf("CoinGecko bitcoin/usd: %w", err)
	}

	return Quote{Price: p, Source: SourceCoinGecko, FetchedAt: time.Now().UTC()}, nil
}

// backoff is the wait before retry attempt n (n >= 1). A Retry-After header in
// seconds overrides the doubling delay.
func (c *CoinGeckoClient) backoff(n int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	base := c.delay
	if base == 0 {
		base = 10 * time.Second
	}
	return base << (n - 1)
}

// get retries only on HTTP 429.
func (c *CoinGeckoClient) get(ctx context.Context, url string) ([]byte, error) {
	var retryAfter string
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt, retryAfter)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode != http.StatusTooManyRequests:
			return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
		case attempt >= c.maxRetries:
			return nil, fmt.Errorf("CoinGecko rate limited after %d attempts", attempt+1)
		}
		retryAfter = resp.Header.Get("Retry-After")
		slog.Warn("price: CoinGecko rate limited", "attempt", attempt+1, "retry_after", retryAfter)
	}
}
