// Package controller owns the adaptor's lifecycle: it wires the HTTP
// listener, the full-push schedule, the incremental poller, and the
// one-at-a-time push gate together and starts and stops them in the order
// that keeps shutdown bounded, mirroring the reference GsaCommunicationHandler's
// start/stop sequencing.
package controller

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/opendocfeed/adaptor/internal/config"
	"github.com/opendocfeed/adaptor/internal/docidsender"
	"github.com/opendocfeed/adaptor/internal/httpapi"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/opendocfeed/adaptor/internal/oneshot"
	"github.com/opendocfeed/adaptor/internal/poller"
	"github.com/opendocfeed/adaptor/internal/scheduler"
	"github.com/opendocfeed/adaptor/internal/session"
)

const fullPushScheduleID = "full-listing"

// fullListingScheduleKey is the config.Reader key that carries the full
// push cron expression, matching internal/config/reader.go.
const fullListingScheduleKey = "adaptor.full_listing_schedule"

// GetDocIdsErrorHandler mirrors adaptor.GetDocIdsErrorHandler by shape.
type GetDocIdsErrorHandler interface {
	docidsender.ErrorHandler
	HandleFailedToGetDocIds(err error) docidsender.RetryDecision
}

type defaultGetDocIdsErrorHandler struct{}

func (defaultGetDocIdsErrorHandler) HandleFailedToSend(error, int) docidsender.RetryDecision {
	return docidsender.RetryPush
}

func (defaultGetDocIdsErrorHandler) HandleFailedToGetDocIds(error) docidsender.RetryDecision {
	return docidsender.RetryPush
}

// Controller composes the running adaptor: config, sessions, the push
// gate, the cron schedule, the incremental poller, docid delivery, and the
// HTTP listener that serves documents and the SAML flows.
type Controller struct {
	adaptor  httpapi.Adaptor
	cfgMgr   *config.Manager
	sessions *session.Manager
	journal  *journal.Journal
	pusher   *docidsender.Sender
	logger   *slog.Logger

	scheduler *scheduler.Scheduler
	fullPush  *oneshot.Gate
	incPoller *poller.Poller

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener

	errHandlerMu sync.Mutex
	errHandler   GetDocIdsErrorHandler
}

// Deps bundles everything Controller needs, all already constructed by the
// root package's Start facade. The HTTP router and TLS config are supplied
// separately to Start, since only the root package knows how to bridge the
// public Adaptor into the SAML handlers that build the router.
type Deps struct {
	Adaptor   httpapi.Adaptor
	ConfigMgr *config.Manager
	Sessions  *session.Manager
	Journal   *journal.Journal
	Pusher    *docidsender.Sender
	Logger    *slog.Logger
}

// New builds a Controller. It does not start anything yet; call Start.
func New(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		adaptor:    d.Adaptor,
		cfgMgr:     d.ConfigMgr,
		sessions:   d.Sessions,
		journal:    d.Journal,
		pusher:     d.Pusher,
		logger:     logger,
		scheduler:  scheduler.New(),
		fullPush:   oneshot.New(func(context.Context) { logger.Warn("skipping scheduled full push: previous invocation still running") }),
		errHandler: defaultGetDocIdsErrorHandler{},
	}
	return c
}

// SetGetDocIdsErrorHandler overrides how errors during GetDocIds are
// handled; nil restores the default, which answers RetryPush to every
// failure (matching DefaultGetDocIdsErrorHandler in the reference
// implementation), with retries capped at maxGetDocIdsAttempts.
func (c *Controller) SetGetDocIdsErrorHandler(h GetDocIdsErrorHandler) {
	c.errHandlerMu.Lock()
	defer c.errHandlerMu.Unlock()
	if h == nil {
		h = defaultGetDocIdsErrorHandler{}
	}
	c.errHandler = h
}

func (c *Controller) getDocIdsErrorHandler() GetDocIdsErrorHandler {
	c.errHandlerMu.Lock()
	defer c.errHandlerMu.Unlock()
	return c.errHandler
}

// Start builds the HTTP listener, invokes Adaptor.Init, registers the full
// push cron schedule, and starts the incremental poller if the adaptor
// implements httpapi.IncrementalAdaptor. router is built by the caller (the
// root package) since it alone knows how to bridge the public Adaptor into
// httpapi.Adaptor and construct the SAML handlers.
func (c *Controller) Start(ctx context.Context, router http.Handler, tlsConfig *tls.Config) error {
	c.mu.Lock()
	if c.httpServer != nil {
		c.mu.Unlock()
		return fmt.Errorf("controller: start: %w", ErrAlreadyStarted)
	}

	cfg := c.cfgMgr.Current()
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("controller: listen: %w", err)
	}

	srv := &http.Server{Handler: router, TLSConfig: tlsConfig}
	c.httpServer = srv
	c.listener = ln
	c.mu.Unlock()

	go func() {
		var serveErr error
		if tlsConfig != nil {
			serveErr = srv.ServeTLS(ln, "", "")
		} else {
			serveErr = srv.Serve(ln)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			c.logger.Error("http listener stopped", "error", serveErr)
		}
	}()

	if err := c.adaptor.Init(ctx); err != nil {
		return fmt.Errorf("controller: adaptor init: %w", err)
	}

	if err := c.scheduler.Register(fullPushScheduleID, cfg.Adaptor.FullListingSchedule, c.triggerScheduledPush); err != nil {
		return fmt.Errorf("controller: register full push schedule: %w", err)
	}
	c.cfgMgr.Subscribe(c.onConfigChanged)

	if incremental, ok := c.adaptor.(httpapi.IncrementalAdaptor); ok {
		period := time.Duration(cfg.Adaptor.IncrementalPollPeriodSecs) * time.Second
		c.incPoller = poller.New(period, incremental.PollIncremental, c.logger)
		c.incPoller.Start(ctx)
	}

	c.logger.Info("controller started", "addr", ln.Addr().String())
	return nil
}

// onConfigChanged is registered with the config manager at Start. It
// reschedules the full push when its cron expression changed and notifies
// the adaptor if it implements httpapi.ConfigModifiedAdaptor, matching
// spec.md's "the existing schedule is rescheduled, not duplicated" and the
// ConfigModificationListener optional capability.
func (c *Controller) onConfigChanged(cfg *config.Config, changed []string) {
	for _, key := range changed {
		if key != fullListingScheduleKey {
			continue
		}
		if err := c.scheduler.Reschedule(fullPushScheduleID, cfg.Adaptor.FullListingSchedule, c.triggerScheduledPush); err != nil {
			c.logger.Error("invalid full push schedule, keeping previous schedule", "error", err)
		}
		break
	}

	if listener, ok := c.adaptor.(httpapi.ConfigModifiedAdaptor); ok {
		listener.ConfigModified(changed)
	}
}

const maxGetDocIdsAttempts = 3

// triggerScheduledPush is the cron job body: it defers to the one-shot gate
// so an overlapping schedule fire logs and returns instead of running two
// pushes concurrently. A GetDocIds failure is handed to the configured
// GetDocIdsErrorHandler, which may request a retry, an abort, or (treated
// the same as abort here, since there is no next batch to skip to) moving
// on until the next scheduled fire.
func (c *Controller) triggerScheduledPush() {
	c.fullPush.TryRun(context.Background(), func(ctx context.Context) {
		handler := c.getDocIdsErrorHandler()
		var lastErr error
		for attempt := 1; attempt <= maxGetDocIdsAttempts; attempt++ {
			lastErr = c.adaptor.GetDocIds(ctx, c.pusher)
			if lastErr == nil {
				c.journal.RecordFullPushCompleted(time.Now())
				return
			}
			if handler.HandleFailedToGetDocIds(lastErr) != docidsender.RetryPush {
				break
			}
		}
		c.logger.Error("full push failed", "error", lastErr)
	})
}

// PushNow triggers an out-of-schedule full push, used by the admin
// push-now endpoint. It returns immediately after starting the push (or
// after the fallback runs, if one was already in flight); it does not wait
// for the push to finish.
func (c *Controller) PushNow(ctx context.Context) error {
	c.mu.Lock()
	started := c.httpServer != nil
	c.mu.Unlock()
	if !started {
		return fmt.Errorf("controller: push now: %w", ErrNotStarted)
	}
	c.triggerScheduledPush()
	return nil
}

// Stop shuts down in the order that keeps shutdown bounded: cancel the
// schedule so no new push starts, interrupt any in-flight push (the
// scheduler's Stop blocks on running jobs, so the push must be cut short
// first), stop the incremental poller, stop the HTTP listener, then let
// the adaptor release its resources.
func (c *Controller) Stop(maxDelay time.Duration) {
	c.scheduler.Cancel(fullPushScheduleID)

	stopCtx, cancel := context.WithTimeout(context.Background(), maxDelay)
	defer cancel()
	c.fullPush.Stop(stopCtx)

	c.scheduler.Stop()

	if c.incPoller != nil {
		c.incPoller.Stop()
	}

	c.mu.Lock()
	srv := c.httpServer
	c.httpServer = nil
	c.mu.Unlock()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), maxDelay)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("http server did not shut down cleanly", "error", err)
		}
	}

	c.logger.Info("controller stopped", "live_sessions", c.sessions.Count())
	c.adaptor.Destroy()
}

// Addr returns the HTTP listener's bound address, useful when Port is 0
// and the OS chose one. It is empty before Start.
func (c *Controller) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}
