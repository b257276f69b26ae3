package token

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func key(kind Kind, value string) string {
	return "token:" + string(kind) + ":" + value
}

func (s *redisStore) Issue(ctx context.Context, kind Kind, claims Claims, ttl time.Duration) (string, error) {
	value := newValue()
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, key(kind, value), payload, ttl).Err(); err != nil {
		return "", err
	}
	return value, nil
}

func (s *redisStore) Consume(ctx context.Context, kind Kind, value string) (Claims, error) {
	payload, err := s.rdb.GetDel(ctx, key(kind, value)).Bytes()
	if err == redis.Nil {
		return Claims{}, ErrTokenNotFound
	}
	if err != nil {
		return Claims{}, err
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrTokenNotFound
	}
	return claims, nil
}

func (s *redisStore) Peek(ctx context.Context, kind Kind, value string) (Claims, error) {
	payload, err := s.rdb.Get(ctx, key(kind, value)).Bytes()
	if err == redis.Nil {
		return Claims{}, ErrTokenNotFound
	}
	if err != nil {
		return Claims{}, err
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrTokenNotFound
	}
	return claims, nil
}
