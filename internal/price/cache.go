package price

import (
	"sync"
	"time"

	"github.com/mtlprog/wallet/internal/domain"
)

const defaultTTL = 30 * time.Second

// Quote is a BTC price with the time it was observed.
type Quote struct {
	Price     domain.Price `json:"-"`
	Source    string       `json:"source"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

type priceCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	quote     Quote
	expiresAt time.Time
	now       func() time.Time
}

func newPriceCache(ttl time.Duration) *priceCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &priceCache{ttl: ttl, now: time.Now}
}

func (c *priceCache) get() (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.quote.Price.IsZero() || c.now().After(c.expiresAt) {
		return Quote{}, false
	}
	return c.quote, true
}

func (c *priceCache) set(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quote = q
	c.expiresAt = c.now().Add(c.ttl)
}
