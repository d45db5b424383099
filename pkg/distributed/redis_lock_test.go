package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // test DB
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	client.FlushDB(ctx)

	return client
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	manager := NewRedisLockManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "test:lock", "instance1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, lock)

	// Second grab of the same key must fail while held
	lock2, err := manager.Acquire(ctx, "test:lock", "instance2", 5*time.Second)
	assert.Equal(t, ErrLockNotAcquired, err)
	assert.Nil(t, lock2)

	err = lock.Release(ctx)
	assert.NoError(t, err)

	// Reacquirable after release
	lock3, err := manager.Acquire(ctx, "test:lock", "instance3", 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, lock3)
	defer lock3.Release(ctx)
}

func TestRedisLock_AutoExpire(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	manager := NewRedisLockManager(client)
	ctx := context.Background()

	_, err := manager.Acquire(ctx, "test:expire", "instance1", 100*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	lock2, err := manager.Acquire(ctx, "test:expire", "instance2", time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, lock2)
	defer lock2.Release(ctx)
}

func TestRedisLock_ReleaseOnlyByOwner(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	manager := NewRedisLockManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "test:owner", "instance1", 5*time.Second)
	require.NoError(t, err)

	// Pretend another instance holds the same key
	stolen := &RedisLock{client: client, key: "test:owner", value: "instance2"}
	err = stolen.Release(ctx)
	assert.Equal(t, ErrLockNotHeld, err)

	// Real owner can still release
	assert.NoError(t, lock.Release(ctx))
}

func TestRedisLock_Extend(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	manager := NewRedisLockManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "test:extend", "instance1", 200*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, lock.Extend(ctx, 5*time.Second))

	time.Sleep(300 * time.Millisecond)

	held, err := lock.IsHeld(ctx)
	require.NoError(t, err)
	assert.True(t, held, "extended lock should outlive its original TTL")

	assert.NoError(t, lock.Release(ctx))
}

func TestRedisLock_AcquireWithRetry(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	manager := NewRedisLockManager(client)
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, "test:retry", "instance1", 300*time.Millisecond)
	require.NoError(t, err)
	_ = lock

	// Held lock expires while the second instance retries
	lock2, err := manager.AcquireWithRetry(ctx, "test:retry", "instance2", time.Second, 5, 150*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, lock2)
	defer lock2.Release(ctx)
}
