package adaptor

import (
	"context"
	"io"
	"time"
)

// Request is passed to Adaptor.GetDocContent for a single document fetch.
type Request interface {
	// DocId is the document being requested.
	DocId() DocId

	// HasChangedSinceLastAccess returns false iff lastModified is non-zero,
	// the client sent an If-Modified-Since header, and lastModified is not
	// strictly after it (i.e. the client's cached copy is still current). An adaptor that does not
	// track modification times can ignore this and always write content.
	HasChangedSinceLastAccess(lastModified time.Time) bool

	// LastAccessTime is the client's If-Modified-Since value, or the zero
	// time if the client sent none.
	LastAccessTime() time.Time
}

// Response is passed to Adaptor.GetDocContent. Exactly one of
// RespondNotModified, RespondNotFound, or a Write to the io.Writer returned
// by Writer must happen. Metadata and ACL must be set before the first
// Write call; they are frozen once the body stream is obtained.
type Response interface {
	RespondNotModified()
	RespondNotFound()

	SetContentType(contentType string)
	SetMetadata(m Metadata)
	SetAcl(acl Acl)

	// Writer returns the body output stream. Calling it commits the
	// response headers built so far; subsequent SetMetadata/SetAcl calls
	// have no effect.
	Writer() io.Writer
}

// DocIdPusher is the callback surface an Adaptor uses to push records
// during GetDocIds, and that AdaptorContext exposes for out-of-band pushes.
type DocIdPusher interface {
	// PushRecords composes and sends one feed for the given batch. Records
	// within a single call are never split across feeds, and their order
	// is preserved end-to-end. Returns the first record that failed to
	// push (nil on full success) so the caller can resume from it.
	PushRecords(ctx context.Context, records []DocIdRecord, handler PushErrorHandler) (*DocIdRecord, error)

	// PushNamedResources composes a single ACL-only feed.
	PushNamedResources(ctx context.Context, resources map[DocId]Acl, handler PushErrorHandler) (*DocId, error)
}

// RetryDecision is returned by error-handler callbacks to steer the sender.
type RetryDecision int

const (
	// RetryPush retries the failed operation.
	RetryPush RetryDecision = iota
	// AbortPush stops the entire push; already-sent batches are unaffected.
	AbortPush
	// ContinueSkippingBatch drops the failing batch and moves to the next.
	ContinueSkippingBatch
)

// PushErrorHandler is consulted whenever a feed send fails permanently
// (retries exhausted or a non-retryable error).
type PushErrorHandler interface {
	HandleFailedToSend(err error, attempt int) RetryDecision
}

// GetDocIdsErrorHandler extends PushErrorHandler with a hook for failures
// in the adaptor's getDocIds callback itself (as opposed to a feed send).
type GetDocIdsErrorHandler interface {
	PushErrorHandler
	HandleFailedToGetDocIds(err error) RetryDecision
}

// AdaptorContext is handed to Adaptor.Init and gives the adaptor a
// controlled way to reach back into the library: pushing documents
// out-of-band, encoding DocIds, and reading configuration.
type AdaptorContext interface {
	Config() ConfigReader
	DocIdPusher() DocIdPusher
	EncodeDocId(id DocId) string
	SetGetDocIdsErrorHandler(handler GetDocIdsErrorHandler)
	GetDocIdsErrorHandler() GetDocIdsErrorHandler
}

// ConfigReader is the read-only view of Config an adaptor is given; it may
// not mutate process-wide configuration.
type ConfigReader interface {
	String(key string) (string, bool)
	Int(key string) (int, bool)
	Bool(key string) (bool, bool)
	Duration(key string) (time.Duration, bool)
}

// Adaptor is the capability set a repository-specific implementation must
// provide. It intentionally has no method table larger than the mandatory
// operations; optional behavior is detected with a secondary interface
// check (PollingIncrementalAdaptor, ConfigModificationListener) rather than
// through inheritance.
type Adaptor interface {
	// Init is called once during Controller.Start, after the HTTP
	// listener has started serving. A returned error aborts startup.
	Init(ctx context.Context, actx AdaptorContext) error

	// Destroy is called once during Controller.Stop, after the listener
	// has stopped accepting new connections.
	Destroy()

	// GetDocIds enumerates the repository's documents by calling
	// pusher.PushRecords any number of times. It is invoked on the
	// full-push schedule and via an immediate-push trigger.
	GetDocIds(ctx context.Context, pusher DocIdPusher) error

	// GetDocContent serves one document's bytes, or calls
	// resp.RespondNotFound()/RespondNotModified().
	GetDocContent(ctx context.Context, req Request, resp Response) error

	// IsUserAuthorized returns a decision per requested DocId. It is
	// called with AnonymousIdentity to probe a document's security class,
	// and with an authenticated AuthnIdentity to gate access.
	IsUserAuthorized(ctx context.Context, identity AuthnIdentity, ids []DocId) (map[DocId]AuthzStatus, error)
}

// PollingIncrementalAdaptor is an optional capability: an Adaptor that also
// implements this interface receives periodic PollIncremental calls.
type PollingIncrementalAdaptor interface {
	Adaptor
	PollIncremental(ctx context.Context) error
}

// ConfigModificationListener is an optional capability: an Adaptor that
// also implements this interface is notified when configuration changes.
type ConfigModificationListener interface {
	ConfigModified(changedKeys []string)
}
