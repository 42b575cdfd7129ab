package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestProductCache(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.GetCachedProduct(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.CacheProduct(ctx, 1, []byte(`{"product_id":1}`), time.Minute))
	require.NoError(t, c.CacheProductList(ctx, []byte(`[]`), time.Minute))

	data, found, err := c.GetCachedProduct(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"product_id":1}`, string(data))

	require.NoError(t, c.InvalidateProducts(ctx, 1))

	_, found, _ = c.GetCachedProduct(ctx, 1)
	assert.False(t, found)
	_, found, _ = c.GetCachedProductList(ctx)
	assert.False(t, found)
}

func TestTokenRevocation(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	revoked, err := c.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.RevokeToken(ctx, "jti-1", time.Hour))
	revoked, err = c.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, _ = c.IsTokenRevoked(ctx, "jti-1")
	assert.False(t, revoked)
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	c, mr := newTestClient(t)

	require.NoError(t, c.RevokeToken(context.Background(), "old", -time.Second))
	assert.False(t, mr.Exists("auth:revoked:old"))
}

func TestLoginFailureWindow(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := c.RecordLoginFailure(ctx, "a@example.com", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err := c.LoginFailures(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mr.FastForward(2 * time.Minute)
	n, err = c.LoginFailures(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _ = c.RecordLoginFailure(ctx, "a@example.com", time.Minute)
	require.NoError(t, c.ResetLoginFailures(ctx, "a@example.com"))
	n, _ = c.LoginFailures(ctx, "a@example.com")
	assert.Zero(t, n)
}

func TestIdempotencyKey(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.CheckIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetIdempotencyKey(ctx, "k1", 77, time.Hour))
	id, found, err := c.CheckIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(77), id)
}

func TestLockOwnership(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	token, err := c.AcquireLock(ctx, "checkout:1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	second, err := c.AcquireLock(ctx, "checkout:1", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second)

	require.NoError(t, c.ReleaseLock(ctx, "checkout:1", "someone-else"))
	assert.True(t, mr.Exists("lock:checkout:1"))

	require.NoError(t, c.ReleaseLock(ctx, "checkout:1", token))
	assert.False(t, mr.Exists("lock:checkout:1"))
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SaveOAuthState(ctx, "xyz", time.Minute))

	ok, err := c.ConsumeOAuthState(ctx, "xyz")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ConsumeOAuthState(ctx, "xyz")
	require.NoError(t, err)
	assert.False(t, ok)
}
