package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return now })

	token, issued, err := m.Generate(42, model.RoleTutor)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, model.RoleTutor, got.Role)
	assert.Equal(t, issued.TokenID, got.TokenID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestTokenManager_UniqueTokenIDs(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	_, a, err := m.Generate(1, model.RoleStudent)
	require.NoError(t, err)
	_, b, err := m.Generate(1, model.RoleStudent)
	require.NoError(t, err)

	assert.NotEqual(t, a.TokenID, b.TokenID)
}

func TestTokenManager_Rejects(t *testing.T) {
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return now })
	token, _, err := m.Generate(7, model.RoleStudent)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, apperror.ErrInvalidToken)
		assert.ErrorIs(t, err, apperror.ErrAuthentication)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour).WithClock(func() time.Time { return now })
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, apperror.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, apperror.ErrInvalidToken)
	})
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	ok, err := h.Check(hash, "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Check(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Check("not-a-hash", "x")
	assert.Error(t, err)
}

func TestStoreRevocationList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewStoreRevocationList(memstore.New().Revocations())
	l.now = func() time.Time { return now }

	require.NoError(t, l.Revoke(ctx, "live", now.Add(time.Minute)))
	require.NoError(t, l.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, err := l.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = l.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = l.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.False(t, revoked)

	purged, err := l.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestRedisRevocationList(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisRevocationList(client)
	jti := uuid.NewString()

	revoked, err := l.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, jti, time.Now().Add(time.Minute)))

	revoked, err = l.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, revokedKeyPrefix+jti).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestMemoryLinkCodes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryLinkCodes(time.Minute)

	require.NoError(t, c.Put(ctx, "ABC", 42, time.Minute))

	userID, ok, err := c.Take(ctx, "ABC")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), userID)

	// код одноразовый
	_, ok, err = c.Take(ctx, "ABC")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "SHORT", 7, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok, err = c.Take(ctx, "SHORT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLinkCodes(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// два экземпляра сервиса видят один и тот же код
	issuer := NewRedisLinkCodes(client)
	consumer := NewRedisLinkCodes(client)
	code := uuid.NewString()

	require.NoError(t, issuer.Put(ctx, code, 42, time.Minute))

	ttl, err := client.TTL(ctx, linkCodeKeyPrefix+code).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	userID, ok, err := consumer.Take(ctx, code)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), userID)

	_, ok, err = issuer.Take(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok)
}
