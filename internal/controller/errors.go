package controller

import "errors"

// ErrAlreadyStarted indicates Start was called on a Controller that is
// already running. Starting twice is a programming error, not a
// transient condition.
var ErrAlreadyStarted = errors.New("controller: already started")

// ErrNotStarted indicates an operation that requires a running controller
// (e.g. an immediate push) was attempted before Start.
var ErrNotStarted = errors.New("controller: not started")
