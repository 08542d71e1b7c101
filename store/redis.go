package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisQueryTimeout bounds each Redis operation to prevent indefinite hangs
// on an unresponsive server.
const redisQueryTimeout = 5 * time.Second

type redisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*redisStore)(nil)

// NewRedis returns a Store backed by Redis. Entries live under
// "prefix:domain:key" (or "domain:key" when prefix is empty). The caller owns
// the redis.Client lifecycle.
func NewRedis(client *redis.Client, prefix string) Store {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(domain, key string) string {
	if s.prefix == "" {
		return domain + ":" + key
	}
	return s.prefix + ":" + domain + ":" + key
}

func queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, redisQueryTimeout)
}

func (s *redisStore) Load(ctx context.Context, domain, key string) ([]byte, bool, error) {
	if err := checkPair(domain, key); err != nil {
		return nil, false, err
	}
	qctx, cancel := queryCtx(ctx)
	defer cancel()
	data, err := s.client.Get(qctx, s.key(domain, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		// Treat an unreachable store as a miss; the value will be refetched.
		log.Debugw("redis load failed, treated as miss", "domain", domain, "key", key, "err", err)
		return nil, false, nil
	}
	return data, true, nil
}

func (s *redisStore) Save(ctx context.Context, domain, key string, data []byte) error {
	if err := checkPair(domain, key); err != nil {
		return err
	}
	qctx, cancel := queryCtx(ctx)
	defer cancel()
	return s.client.Set(qctx, s.key(domain, key), data, 0).Err()
}

func (s *redisStore) Delete(ctx context.Context, domain, key string) error {
	if err := checkPair(domain, key); err != nil {
		return err
	}
	qctx, cancel := queryCtx(ctx)
	defer cancel()
	return s.client.Del(qctx, s.key(domain, key)).Err()
}

func (s *redisStore) DeleteDomain(ctx context.Context, domain string) error {
	if err := checkDomain(domain); err != nil {
		return err
	}
	qctx, cancel := queryCtx(ctx)
	defer cancel()
	iter := s.client.Scan(qctx, 0, s.key(domain, "*"), 100).Iterator()
	for iter.Next(qctx) {
		if err := s.client.Del(qctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
