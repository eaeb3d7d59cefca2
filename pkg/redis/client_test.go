package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVLifecycleWithMock(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	_, ok, err := client.Get(ctx, "token")
	if err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	if err := client.Set(ctx, "token", "t1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if stored := mock.data["sf:kv:token"]; stored != "t1" {
		t.Fatalf("expected namespaced key to hold t1, got %q", stored)
	}
	val, ok, err := client.Get(ctx, "token")
	if err != nil || !ok || val != "t1" {
		t.Fatalf("unexpected get %q ok=%v err=%v", val, ok, err)
	}

	if err := client.Remove(ctx, "token"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok, _ := client.Get(ctx, "token"); ok {
		t.Fatalf("expected key gone after remove")
	}
}

func TestGetWrapsBackendErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = errors.New("connection reset")
	client := &Client{store: mock}

	_, ok, err := client.Get(context.Background(), "token")
	if err == nil || ok {
		t.Fatalf("expected backend error, ok=%v err=%v", ok, err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if _, _, err := client.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error from nil store")
	}
	if err := client.Set(ctx, "k", "v"); err == nil {
		t.Fatalf("expected error from nil store")
	}
	if err := client.Remove(ctx, "k"); err == nil {
		t.Fatalf("expected error from nil store")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil raw should be a no-op: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.KVKey("itcaststore_cart"); got != "sf:kv:itcaststore_cart" {
		t.Fatalf("unexpected kv key %s", got)
	}
	if got := client.buildKey(); got != "sf" {
		t.Fatalf("unexpected bare key %s", got)
	}
	if got := client.buildKey("kv", "", "x"); got != "sf:kv:x" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "127.0.0.1:6380", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestNewAgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, config.RedisConfig{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Set(ctx, "itcaststore_cart", `[{"id":"p1"}]`))

	stored, err := mr.Get("sf:kv:itcaststore_cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1"}]`, stored)
	assert.Zero(t, mr.TTL("sf:kv:itcaststore_cart"))

	val, ok, err := client.Get(ctx, "itcaststore_cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, val)

	require.NoError(t, client.Remove(ctx, "itcaststore_cart"))
	assert.False(t, mr.Exists("sf:kv:itcaststore_cart"))
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond}, nil)
	require.Error(t, err)
}

type mockCmdable struct {
	data   map[string]string
	getErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
