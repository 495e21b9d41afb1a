package scheduler

import "errors"

// ErrAlreadyRegistered indicates Register was called with an id already in
// use; callers that mean to change a schedule should call Reschedule.
var ErrAlreadyRegistered = errors.New("scheduler: id already registered")

// InvalidScheduleError wraps a cron expression robfig/cron rejected.
type InvalidScheduleError struct {
	Expr  string
	Cause error
}

func (e *InvalidScheduleError) Error() string {
	return "scheduler: invalid cron expression " + e.Expr + ": " + e.Cause.Error()
}

func (e *InvalidScheduleError) Unwrap() error {
	return e.Cause
}
