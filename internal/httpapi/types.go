// Package httpapi implements the adaptor's inbound HTTP surface: the
// document content handler, the SAML authn and batch-authz endpoints, and
// the admin push-now trigger, routed with github.com/go-chi/chi/v5.
package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/opendocfeed/adaptor/internal/docidsender"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

// Request is passed to Adaptor.GetDocContent for a single document fetch.
// It is the internal-package mirror of the public adaptor.Request
// interface, kept import-cycle-free of the root package.
type Request interface {
	DocId() string
	HasChangedSinceLastAccess(lastModified time.Time) bool
	LastAccessTime() time.Time
}

// Response is passed to Adaptor.GetDocContent.
type Response interface {
	RespondNotModified()
	RespondNotFound()
	SetContentType(contentType string)
	SetMetadata(m map[string]string)
	SetAcl(acl AclFragment)
	Writer() io.Writer
}

// AclFragment mirrors the public Acl shape as plain field values, letting
// httpapi build a feed.AclFragment without depending on the root package.
type AclFragment struct {
	PermitUsers, DenyUsers   []string
	PermitGroups, DenyGroups []string
	ParentURL                string
	InheritFrom              string
}

// DocIdPusher is the callback surface an Adaptor uses during GetDocIds.
// *docidsender.Sender satisfies this directly.
type DocIdPusher interface {
	PushRecords(ctx context.Context, records []docidsender.Record, handler docidsender.ErrorHandler) (*docidsender.Record, error)
	PushNamedResources(ctx context.Context, resources []docidsender.NamedResource, handler docidsender.ErrorHandler) (*string, error)
}

// Adaptor is the internal-facing capability surface the controller drives.
// The root package's Start/Run functions build a bridge value that
// implements this interface by wrapping a caller-supplied public Adaptor.
type Adaptor interface {
	Init(ctx context.Context) error
	Destroy()
	GetDocIds(ctx context.Context, pusher DocIdPusher) error
	GetDocContent(ctx context.Context, req Request, resp Response) error
	IsUserAuthorized(ctx context.Context, identity session.Identity, ids []string) (map[string]samlutil.AuthzDecision, error)
}

// IncrementalAdaptor is the optional secondary capability detected with a
// type assertion, mirroring the public PollingIncrementalAdaptor.
type IncrementalAdaptor interface {
	Adaptor
	PollIncremental(ctx context.Context) error
}

// ConfigModifiedAdaptor is the optional secondary capability detected with
// a type assertion, mirroring the public ConfigModificationListener.
type ConfigModifiedAdaptor interface {
	ConfigModified(changedKeys []string)
}
