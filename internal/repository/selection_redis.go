package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// RedisSelectionStore keeps the selection under one key per identity.
type RedisSelectionStore struct {
	client *goredis.Client
	key    string
}

func NewRedisSelectionStore(client *goredis.Client, email string) *RedisSelectionStore {
	return &RedisSelectionStore{
		client: client,
		key:    "walletdash:selected-wallet:" + strings.ToLower(email),
	}
}

func (s *RedisSelectionStore) Load(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis load selection: %w", err)
	}
	return val, nil
}

// Save stores method without expiry; the selection lives until replaced.
func (s *RedisSelectionStore) Save(ctx context.Context, method string) error {
	if err := s.client.Set(ctx, s.key, strings.ToLower(method), 0).Err(); err != nil {
		return fmt.Errorf("redis save selection: %w", err)
	}
	return nil
}
