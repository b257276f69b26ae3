package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/emberhollow/storefront/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const keyPrefix = "session:"

var ErrSessionNotFound = errors.New("session_not_found")

type Session struct {
	Token     string       `json:"-"`
	UserID    snowflake.ID `json:"user_id"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Store keeps sessions in redis so restarts do not log everyone out and the
// admin can revoke a session by deleting its key.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

type StoreParams struct {
	fx.In

	Redis *redis.Client
	Cfg   config.Config
}

func NewStore(p StoreParams) *Store {
	ttl := time.Duration(p.Cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Store{rdb: p.Redis, ttl: ttl}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) Create(ctx context.Context, userID snowflake.ID, role string) (Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	sess := Session{
		Token:     hex.EncodeToString(buf),
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.rdb.Set(ctx, keyPrefix+sess.Token, payload, s.ttl).Err(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionNotFound
	}
	payload, err := s.rdb.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, ErrSessionNotFound
	}
	sess.Token = token
	return sess, nil
}

func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.rdb.Del(ctx, keyPrefix+token).Err()
}

// DestroyAllForUser walks the session keyspace. Sessions are few enough that a
// SCAN is fine here.
func (s *Store) DestroyAllForUser(ctx context.Context, userID snowflake.ID) error {
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			continue
		}
		if sess.UserID == userID {
			if err := s.rdb.Del(ctx, key).Err(); err != nil {
				return err
			}
		}
	}
	return iter.Err()
}
