package adaptor

import (
	"errors"

	"github.com/opendocfeed/adaptor/internal/controller"
)

// Sentinel errors for the public API. Internal packages define their own
// sentinels and wrap them with fmt.Errorf("%w", ...); callers that need to
// branch on error kind should use errors.Is against these or the internal
// ones re-exported here.
var (
	// ErrEmptyDocId indicates an attempt to construct a DocId from "".
	ErrEmptyDocId = errors.New("adaptor: docid must not be empty")

	// ErrAlreadyStarted indicates Start was called on a Controller that is
	// already running. Starting twice is a programming error, not a
	// transient condition. It is the same sentinel internal/controller
	// wraps, re-exported so callers never need to import the internal
	// package to branch on it with errors.Is.
	ErrAlreadyStarted = controller.ErrAlreadyStarted

	// ErrNotStarted indicates an operation that requires a running
	// controller (e.g. an immediate push) was attempted before Start.
	ErrNotStarted = controller.ErrNotStarted

	// ErrMalformedId indicates an inbound URL path did not decode to a
	// valid DocId. Handlers respond 404, never 500, for this error.
	ErrMalformedId = errors.New("adaptor: malformed docid path")
)
