package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// LinkCodes одноразовые коды привязки Telegram чата к пользователю
type LinkCodes interface {
	Put(ctx context.Context, code string, userID int64, ttl time.Duration) error
	// Take возвращает пользователя и сразу гасит код; false, если кода нет или он истёк
	Take(ctx context.Context, code string) (int64, bool, error)
}

const linkCodeKeyPrefix = "tglink:"

// RedisLinkCodes общие коды для всех экземпляров сервиса
type RedisLinkCodes struct {
	client redis.UniversalClient
}

func NewRedisLinkCodes(client redis.UniversalClient) *RedisLinkCodes {
	return &RedisLinkCodes{client: client}
}

func (c *RedisLinkCodes) Put(ctx context.Context, code string, userID int64, ttl time.Duration) error {
	if err := c.client.Set(ctx, linkCodeKeyPrefix+code, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store link code: %w", err)
	}
	return nil
}

func (c *RedisLinkCodes) Take(ctx context.Context, code string) (int64, bool, error) {
	v, err := c.client.GetDel(ctx, linkCodeKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("take link code: %w", err)
	}

	userID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse link code owner: %w", err)
	}
	return userID, true, nil
}

// MemoryLinkCodes коды в памяти процесса, когда Redis не настроен
type MemoryLinkCodes struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryLinkCodes(ttl time.Duration) *MemoryLinkCodes {
	return &MemoryLinkCodes{cache: cache.New(ttl, 2*ttl)}
}

func (c *MemoryLinkCodes) Put(_ context.Context, code string, userID int64, ttl time.Duration) error {
	c.cache.Set(code, userID, ttl)
	return nil
}

func (c *MemoryLinkCodes) Take(_ context.Context, code string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(code)
	if !ok {
		return 0, false, nil
	}
	c.cache.Delete(code)
	return v.(int64), true, nil
}
