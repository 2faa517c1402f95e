package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreWithClient(client, ttl), mr
}

func TestReserveClaimsKeyOnce(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "plan-submit:prj_1:pqp:v2", "usr_1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatal("first reservation should succeed")
	}

	ok, err = store.Reserve(ctx, "plan-submit:prj_1:pqp:v2", "usr_2")
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if ok {
		t.Fatal("second reservation of the same key should fail")
	}
}

func TestReserveDistinctKeys(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	for _, key := range []string{"plan-submit:prj_1:pqp:v2", "plan-submit:prj_1:pqp:v3", "plan-submit:prj_2:pqp:v2"} {
		ok, err := store.Reserve(ctx, key, "usr_1")
		if err != nil {
			t.Fatalf("reserve %s: %v", key, err)
		}
		if !ok {
			t.Fatalf("reservation of distinct key %s should succeed", key)
		}
	}
}

func TestReleaseFreesKey(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	if ok, _ := store.Reserve(ctx, "key-1", "usr_1"); !ok {
		t.Fatal("reserve failed")
	}
	if err := store.Release(ctx, "key-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := store.Reserve(ctx, "key-1", "usr_1"); !ok {
		t.Fatal("reservation after release should succeed")
	}
}

func TestReservationExpires(t *testing.T) {
	store, mr := newTestStore(t, time.Second)
	ctx := context.Background()

	if ok, _ := store.Reserve(ctx, "key-ttl", "usr_1"); !ok {
		t.Fatal("reserve failed")
	}

	mr.FastForward(2 * time.Second)

	ok, err := store.Reserve(ctx, "key-ttl", "usr_2")
	if err != nil {
		t.Fatalf("reserve after expiry: %v", err)
	}
	if !ok {
		t.Fatal("reservation should succeed after TTL expiry")
	}
}
