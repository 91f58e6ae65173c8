package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()

	lock, err := NewRedisLock(store, "epharm:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to win")
	}

	other, err := NewRedisLock(store, "epharm:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to lose while held")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected acquire to win after release")
	}
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()

	holder, err := NewRedisLock(store, "epharm:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, err := holder.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	// a lock that never acquired must not clear another owner's key
	bystander, err := NewRedisLock(store, "epharm:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if err := bystander.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, exists := store.data["epharm:lock:cron"]; !exists {
		t.Fatal("lock key should still be held by the owner")
	}
}
