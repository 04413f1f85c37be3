package redis

import (
	"context"
	"encoding/json"
	"time"

	"furrchum-vet/internal/ports/idempotency"

	goredis "github.com/go-redis/redis/v8"
)

const (
	lockPrefix     = "idem:lock:"
	responsePrefix = "idem:resp:"
)

// IdempotencyStore comparte las respuestas entre réplicas del API.
type IdempotencyStore struct {
	client *goredis.Client
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

func NewIdempotencyStore(client *goredis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) Load(ctx context.Context, key string) (idempotency.Record, bool, error) {
	data, err := s.client.Get(ctx, responsePrefix+key).Bytes()
	if err == goredis.Nil {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, err
	}

	var rec idempotency.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return idempotency.Record{}, false, err
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, lockPrefix+key, "1", ttl).Result()
}

// Save guarda la respuesta y deja el lock vivo el mismo tiempo.
func (s *IdempotencyStore) Save(ctx context.Context, key string, rec idempotency.Record, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, responsePrefix+key, b, ttl)
		p.Expire(ctx, lockPrefix+key, ttl)
		return nil
	})
	return err
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockPrefix+key).Err()
}
