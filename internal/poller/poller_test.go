package poller_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opendocfeed/adaptor/internal/bg"
	"github.com/opendocfeed/adaptor/internal/poller"
	"github.com/stretchr/testify/assert"
)

func TestPollerCallsFnPeriodically(t *testing.T) {
	var calls int32
	p := poller.New(5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	p.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	p.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestPollerZeroPeriodDisabled(t *testing.T) {
	var calls int32
	p := poller.New(0, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	p.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	p.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPollerSuppressesOverlap(t *testing.T) {
	var running int32
	var maxObserved int32
	release := make(chan struct{})

	p := poller.New(2*time.Millisecond, func(ctx context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			cur := atomic.LoadInt32(&maxObserved)
			if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	}, nil)

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	close(release)
	p.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxObserved))
}

func TestStopOnNeverStartedIsNoop(t *testing.T) {
	p := poller.New(time.Second, func(ctx context.Context) error { return nil }, nil)
	p.Stop()
}

func TestPollerWithSyncRunnerCompletesEachTickBeforeTheNext(t *testing.T) {
	var calls int32
	var overlapped bool
	var inFlight int32

	p := poller.New(3*time.Millisecond, func(ctx context.Context) error {
		if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
			overlapped = true
		}
		atomic.AddInt32(&calls, 1)
		time.Sleep(time.Millisecond)
		atomic.StoreInt32(&inFlight, 0)
		return nil
	}, nil, poller.WithRunner(bg.Sync{}))

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	assert.False(t, overlapped, "bg.Sync must run each tick inline, never overlapping")
}
