// Package scheduler wraps a cron-expression-driven job registry for the
// full-push schedule, adding reschedule-in-place semantics robfig/cron
// does not provide natively.
package scheduler

import (
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is invoked when its registered schedule fires. It should not block
// for long; long-running work should hand off to a goroutine or, for the
// full push specifically, the one-shot gate.
type Job func()

// Scheduler owns one robfig/cron.Cron instance and a name-to-entry map so
// callers can Reschedule or Cancel by a stable external ID instead of the
// opaque cron.EntryID robfig/cron hands back.
type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New builds a Scheduler and starts its internal goroutine. Call Stop to
// shut it down.
func New() *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
	s.cron.Start()
	return s
}

// Register adds job under expr, keyed by id. Registering an id that
// already exists returns ErrAlreadyRegistered; use Reschedule instead.
func (s *Scheduler) Register(id, expr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return ErrAlreadyRegistered
	}
	entryID, err := s.cron.AddFunc(expr, job)
	if err != nil {
		return &InvalidScheduleError{Expr: expr, Cause: err}
	}
	s.entries[id] = entryID
	return nil
}

// Reschedule changes id's cron expression. Implemented as add-then-remove
// against the same external id, since robfig/cron has no native in-place
// reschedule: the new entry must be confirmed valid before the old one is
// torn down, so an invalid expr leaves the previous schedule in effect
// instead of registering nothing. The mutex held across both steps
// prevents a concurrent Cancel from observing id in a state where both
// entries exist.
func (s *Scheduler) Reschedule(id, expr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newID, err := s.cron.AddFunc(expr, job)
	if err != nil {
		return &InvalidScheduleError{Expr: expr, Cause: err}
	}
	if oldID, exists := s.entries[id]; exists {
		s.cron.Remove(oldID)
	}
	s.entries[id] = newID
	return nil
}

// Cancel removes id's schedule. Canceling an unknown id is a no-op.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[id]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
}

// Stop halts the scheduler and waits for any job currently executing to
// finish. No further jobs fire after Stop returns.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
