package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/rate_limit.lua
var rateLimitScript string

//go:embed scripts/release_lock.lua
var releaseLockScript string

const productListKey = "catalog:products:all"

type Client struct {
	rdb               *redis.Client
	rateLimitScript   *redis.Script
	releaseLockScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:               rdb,
		rateLimitScript:   redis.NewScript(rateLimitScript),
		releaseLockScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func productKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

// GetCachedProduct returns the cached JSON for a product view
func (c *Client) GetCachedProduct(ctx context.Context, id int64) ([]byte, bool, error) {
	return c.getBytes(ctx, productKey(id))
}

func (c *Client) CacheProduct(ctx context.Context, id int64, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, productKey(id), data, ttl).Err()
}

// GetCachedProductList returns the cached JSON of the full product listing
func (c *Client) GetCachedProductList(ctx context.Context) ([]byte, bool, error) {
	return c.getBytes(ctx, productListKey)
}

func (c *Client) CacheProductList(ctx context.Context, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, productListKey, data, ttl).Err()
}

// InvalidateProducts drops the listing and the given product entries
func (c *Client) InvalidateProducts(ctx context.Context, ids ...int64) error {
	keys := []string{productListKey}
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) getBytes(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// RevokeToken blacklists a token id until it would have expired anyway
func (c *Client) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, "auth:revoked:"+jti, "1", ttl).Err()
}

func (c *Client) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, "auth:revoked:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordLoginFailure counts a failed login inside a fixed window and
// returns the number of failures so far.
func (c *Client) RecordLoginFailure(ctx context.Context, subject string, window time.Duration) (int64, error) {
	key := "auth:login-failures:" + subject
	result, err := c.rateLimitScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type")
	}
	return count, nil
}

func (c *Client) LoginFailures(ctx context.Context, subject string) (int64, error) {
	n, err := c.rdb.Get(ctx, "auth:login-failures:"+subject).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *Client) ResetLoginFailures(ctx context.Context, subject string) error {
	return c.rdb.Del(ctx, "auth:login-failures:"+subject).Err()
}

// SetIdempotencyKey remembers the order created for a client key
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), orderID, ttl).Err()
}

// CheckIdempotencyKey returns the order id stored for key, if any
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency entry %q: %w", key, err)
	}
	return id, true, nil
}

// AcquireLock acquires a distributed lock and returns the owner token,
// or an empty token when the lock is held elsewhere.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}

// ReleaseLock releases a lock only if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseLockScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// SaveOAuthState stores a CSRF state for the OAuth round trip
func (c *Client) SaveOAuthState(ctx context.Context, state string, ttl time.Duration) error {
	return c.rdb.Set(ctx, "oauth:state:"+state, "1", ttl).Err()
}

// ConsumeOAuthState deletes the state and reports whether it existed
func (c *Client) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	n, err := c.rdb.Del(ctx, "oauth:state:"+state).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
