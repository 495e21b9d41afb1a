// Package poller drives an Adaptor's incremental poll on a fixed period,
// suppressing overlapping invocations if one poll runs longer than the
// period.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/opendocfeed/adaptor/internal/bg"
)

// PollFunc performs one incremental poll. Errors are logged and swallowed;
// a poll failure never stops the schedule.
type PollFunc func(ctx context.Context) error

// Poller periodically calls a PollFunc. Zero value is not usable; build
// with New.
type Poller struct {
	period time.Duration
	fn     PollFunc
	logger *slog.Logger
	runner bg.Runner

	running atomic.Bool
	polling atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Poller at construction time.
type Option func(*Poller)

// WithRunner overrides the background runner used to dispatch each poll
// tick, the same "swap sync for async" seam session.Manager uses for its
// expiry sweep; tests use bg.Sync so a tick's outcome is observable
// immediately instead of racing a goroutine.
func WithRunner(r bg.Runner) Option {
	return func(p *Poller) { p.runner = r }
}

// New builds a Poller that calls fn roughly every period while running.
// period <= 0 means incremental polling is disabled: Start becomes a no-op.
func New(period time.Duration, fn PollFunc, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{period: period, fn: fn, logger: logger, runner: bg.Async{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start begins the polling loop in a new goroutine. Calling Start twice
// without an intervening Stop is a programming error and panics: lifecycle
// misuse is a bug, not a runtime condition to handle gracefully.
func (p *Poller) Start(ctx context.Context) {
	if p.period <= 0 {
		return
	}
	if !p.running.CompareAndSwap(false, true) {
		panic("poller: Start called while already running")
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	defer p.running.Store(false)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce dispatches fn through the runner so a slow poll never blocks the
// ticker loop from observing Stop; the atomic.Bool CAS suppresses a second
// poll from starting while one is still in flight, dropping the tick
// instead of queuing it.
func (p *Poller) pollOnce(ctx context.Context) {
	if !p.polling.CompareAndSwap(false, true) {
		p.logger.Debug("skipping poll tick, previous poll still running")
		return
	}
	p.runner.Do(func() {
		defer p.polling.Store(false)
		if err := p.fn(ctx); err != nil {
			p.logger.Warn("incremental poll failed", "error", err)
		}
	})
}

// Stop signals the polling loop to exit and blocks until it has. Stop on a
// Poller that was never started, or was constructed with period <= 0,
// returns immediately.
func (p *Poller) Stop() {
	if !p.running.Load() {
		return
	}
	close(p.stop)
	<-p.done
}
