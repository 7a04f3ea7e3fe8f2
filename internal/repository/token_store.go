package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLoginTokenInvalid = errors.New("login token is invalid or expired")

// LoginTokenStore holds one-time sign-in tokens, keyed by token hash.
type LoginTokenStore interface {
	Save(ctx context.Context, tokenHash, email string, ttl time.Duration) error
	// Consume returns the email bound to the hash and invalidates it, so a
	// link can only be used once.
	Consume(ctx context.Context, tokenHash string) (string, error)
}

type redisLoginTokenStore struct {
	client *redis.Client
}

func NewRedisLoginTokenStore(client *redis.Client) LoginTokenStore {
	return &redisLoginTokenStore{client: client}
}

func tokenKey(tokenHash string) string {
	return "login_token:" + tokenHash
}

func (s *redisLoginTokenStore) Save(ctx context.Context, tokenHash, email string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(tokenHash), email, ttl).Err()
}

func (s *redisLoginTokenStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	email, err := s.client.GetDel(ctx, tokenKey(tokenHash)).Result()

	if errors.Is(err, redis.Nil) {
		return "", ErrLoginTokenInvalid
	}
	if err != nil {
		return "", err
	}

	return email, nil
}
