package oneshot_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opendocfeed/adaptor/internal/oneshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryRunSingleExecution(t *testing.T) {
	var running int32
	var maxObserved int32

	release := make(chan struct{})
	primary := func(ctx context.Context) {
		n := atomic.AddInt32(&running, 1)
		for {
			cur := atomic.LoadInt32(&maxObserved)
			if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
	}

	g := oneshot.New(nil)
	handle, started := g.TryRun(context.Background(), primary)
	require.True(t, started)
	require.NotNil(t, handle)

	_, started2 := g.TryRun(context.Background(), primary)
	assert.False(t, started2, "second TryRun while primary is in flight must not start")

	close(release)
	handle.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxObserved))
}

func TestTryRunFallbackInvoked(t *testing.T) {
	release := make(chan struct{})
	var fallbackCalls int32

	g := oneshot.New(func(ctx context.Context) {
		atomic.AddInt32(&fallbackCalls, 1)
	})

	handle, started := g.TryRun(context.Background(), func(ctx context.Context) {
		<-release
	})
	require.True(t, started)

	_, started2 := g.TryRun(context.Background(), func(ctx context.Context) {})
	assert.False(t, started2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fallbackCalls))

	close(release)
	handle.Wait()
}

func TestStopCancelsPrimary(t *testing.T) {
	var canceled int32
	var wg sync.WaitGroup
	wg.Add(1)

	g := oneshot.New(nil)
	_, started := g.TryRun(context.Background(), func(ctx context.Context) {
		defer wg.Done()
		<-ctx.Done()
		atomic.StoreInt32(&canceled, 1)
	})
	require.True(t, started)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.Stop(stopCtx)

	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&canceled))
	assert.False(t, g.Running())
}

func TestStopOnIdleGateReturnsImmediately(t *testing.T) {
	g := oneshot.New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	g.Stop(ctx)
	assert.False(t, g.Running())
}

func TestRunAgainAfterCompletion(t *testing.T) {
	g := oneshot.New(nil)
	var calls int32

	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		handle, started := g.TryRun(context.Background(), func(ctx context.Context) {
			atomic.AddInt32(&calls, 1)
			close(done)
		})
		require.True(t, started)
		handle.Wait()
		<-done
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
