package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// Redis and MongoDB backends are exercised only when a server is available:
//
//	INFOGRAPHICS_TEST_REDIS_ADDR=localhost:6379
//	INFOGRAPHICS_TEST_MONGO_URI=mongodb://localhost:27017

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("INFOGRAPHICS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("INFOGRAPHICS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "infographics-test:" + Hash([]byte(t.Name()))[:8] + ":"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	exerciseBackend(t, c, c)
}

func TestMongoCache(t *testing.T) {
	uri := os.Getenv("INFOGRAPHICS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("INFOGRAPHICS_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	c, err := NewMongoCache(ctx, MongoConfig{URI: uri, Database: "infographics_test", Collection: "cache_" + Hash([]byte(t.Name()))[:8]})
	if err != nil {
		t.Fatalf("NewMongoCache: %v", err)
	}
	defer c.Close()

	exerciseBackend(t, c, c)
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("NewRedisCache succeeded against a closed port")
	}
}

func exerciseBackend(t *testing.T, c Cache, cl Clearer) {
	t.Helper()
	ctx := context.Background()

	if _, err := cl.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "b", []byte("beta"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := c.Get(ctx, "a")
	if err != nil || !ok || string(data) != "alpha" {
		t.Fatalf("Get(a) = %q, %v, %v", data, ok, err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("entry survived Delete")
	}

	n, err := cl.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear removed %d entries, want 1", n)
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("entry survived Clear")
	}
}
