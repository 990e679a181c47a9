package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusive(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "reorder")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxInside)
}

func TestLocal_ContextTimeout(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "x")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "x")
	require.ErrorIs(t, err, ErrNotAcquired)

	// other names are independent
	r2, err := l.Acquire(context.Background(), "y")
	require.NoError(t, err)
	r2()
}

func TestRedis_AcquireRelease(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	l := NewRedis(client, "test:lock:", 5*time.Second)

	release, err := l.Acquire(context.Background(), "stages")
	require.NoError(t, err)
	require.True(t, m.Exists("test:lock:stages"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "stages")
	require.ErrorIs(t, err, ErrNotAcquired)

	release()
	require.False(t, m.Exists("test:lock:stages"))

	release2, err := l.Acquire(context.Background(), "stages")
	require.NoError(t, err)
	release2()
}

func TestRedis_ReleaseDoesNotStealForeignLease(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	l := NewRedis(client, "", time.Second)

	release, err := l.Acquire(context.Background(), "stages")
	require.NoError(t, err)

	// lease expires and another holder takes over
	m.FastForward(2 * time.Second)
	require.NoError(t, m.Set("lock:stages", "someone-else"))

	release()
	got, err := m.Get("lock:stages")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}
