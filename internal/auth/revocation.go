package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/repository"
	"github.com/redis/go-redis/v9"
)

// RevocationList общий для всех экземпляров список отозванных jti
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "revoked:"

// RedisRevocationList хранит jti как ключи с TTL до истечения токена
type RedisRevocationList struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// StoreRevocationList хранит отозванные токены в базе, когда Redis не настроен
type StoreRevocationList struct {
	store repository.RevocationStore
	now   func() time.Time
}

func NewStoreRevocationList(store repository.RevocationStore) *StoreRevocationList {
	return &StoreRevocationList{store: store, now: time.Now}
}

func (l *StoreRevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if !expiresAt.After(l.now()) {
		return nil
	}
	return l.store.Revoke(ctx, jti, expiresAt)
}

func (l *StoreRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return l.store.IsRevoked(ctx, jti, l.now())
}

// Purge удаляет истёкшие записи, вызывается планировщиком
func (l *StoreRevocationList) Purge(ctx context.Context) (int64, error) {
	return l.store.PurgeExpired(ctx, l.now())
}

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
