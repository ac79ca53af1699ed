package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtlprog/wallet/internal/domain"
)

const (
	redisKey     = "wallet:price:btcusd"
	redisChannel = "wallet:price:btcusd:updates"
)

type redisQuote struct {
	PerBTC    string    `json:"perBtc"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

func encodeQuote(q Quote) ([]byte, error) {
	return json.Marshal(redisQuote{PerBTC: q.Price.String(), Source: q.Source, FetchedAt: q.FetchedAt})
}

func decodeQuote(data []byte) (Quote, error) {
	var rq redisQuote
	if err := json.Unmarshal(data, &rq); err != nil {
		return Quote{}, fmt.Errorf("decoding quote: %w", err)
	}
	p, err := domain.ParsePrice(rq.PerBTC)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Price: p, Source: rq.Source, FetchedAt: rq.FetchedAt}, nil
}

// RedisStore shares the latest quote between processes. Saved quotes expire after ttl
// and are announced on a pub/sub channel.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Save stores q and publishes it.
func (s *RedisStore) Save(ctx context.Context, q Quote) error {
	data, err := encodeQuote(q)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving quote to redis: %w", err)
	}
	if err := s.client.Publish(ctx, redisChannel, data).Err(); err != nil {
		return fmt.Errorf("publishing quote: %w", err)
	}
	return nil
}

// Latest returns the stored quote or ErrNoPrice when none is live.
func (s *RedisStore) Latest(ctx context.Context) (Quote, error) {
	data, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Quote{}, ErrNoPrice
	}
	if err != nil {
		return Quote{}, fmt.Errorf("reading quote from redis: %w", err)
	}
	return decodeQuote(data)
}

// Subscribe streams published quotes until ctx is cancelled.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Quote, error) {
	pubsub := s.client.Subscribe(ctx, redisChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", redisChannel, err)
	}

	out := make(chan Quote, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q, err := decodeQuote([]byte(msg.Payload))
				if err != nil {
					slog.Warn("price: dropping malformed quote", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- q:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
