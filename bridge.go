package adaptor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/opendocfeed/adaptor/internal/config"
	"github.com/opendocfeed/adaptor/internal/controller"
	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/docidsender"
	"github.com/opendocfeed/adaptor/internal/feed"
	"github.com/opendocfeed/adaptor/internal/httpapi"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

// adaptorBridge wraps a caller-supplied public Adaptor to satisfy
// httpapi.Adaptor, converting between the root package's rich types
// (DocId, Metadata, Acl, AuthnIdentity, AuthzStatus) and the internal
// packages' primitive mirror types. It is the only place in this
// repository that depends on both type systems, which is what keeps
// internal/httpapi and internal/controller free of any dependency on the
// root package (avoiding the root -> controller -> httpapi -> root cycle
// that would otherwise result).
type adaptorBridge struct {
	impl  Adaptor
	codec *docidcodec.Codec
	actx  *adaptorContext
}

func newAdaptorBridge(impl Adaptor, codec *docidcodec.Codec, actx *adaptorContext) *adaptorBridge {
	return &adaptorBridge{impl: impl, codec: codec, actx: actx}
}

func (b *adaptorBridge) Init(ctx context.Context) error {
	return b.impl.Init(ctx, b.actx)
}

func (b *adaptorBridge) Destroy() { b.impl.Destroy() }

func (b *adaptorBridge) GetDocIds(ctx context.Context, pusher httpapi.DocIdPusher) error {
	return b.impl.GetDocIds(ctx, &docIdPusherBridge{inner: pusher, codec: b.codec})
}

func (b *adaptorBridge) GetDocContent(ctx context.Context, req httpapi.Request, resp httpapi.Response) error {
	return b.impl.GetDocContent(ctx, &requestBridge{inner: req}, &responseBridge{inner: resp, codec: b.codec})
}

func (b *adaptorBridge) IsUserAuthorized(ctx context.Context, identity session.Identity, ids []string) (map[string]samlutil.AuthzDecision, error) {
	docIds := make([]DocId, len(ids))
	for i, id := range ids {
		docIds[i] = DocId{id: id}
	}

	result, err := b.impl.IsUserAuthorized(ctx, AuthnIdentity{Username: identity.Username, Groups: identity.Groups}, docIds)
	if err != nil {
		return nil, err
	}

	out := make(map[string]samlutil.AuthzDecision, len(result))
	for docID, status := range result {
		out[docID.String()] = authzDecisionFrom(status)
	}
	return out, nil
}

func authzDecisionFrom(s AuthzStatus) samlutil.AuthzDecision {
	switch s {
	case Permit:
		return samlutil.AuthzPermit
	case Deny:
		return samlutil.AuthzDeny
	default:
		return samlutil.AuthzIndeterminate
	}
}

// incrementalAdaptorBridge additionally satisfies httpapi.IncrementalAdaptor
// when the wrapped Adaptor implements PollingIncrementalAdaptor.
type incrementalAdaptorBridge struct {
	*adaptorBridge
	poll func(ctx context.Context) error
}

func (b *incrementalAdaptorBridge) PollIncremental(ctx context.Context) error { return b.poll(ctx) }

// configModifiedAdaptorBridge additionally satisfies
// httpapi.ConfigModifiedAdaptor when the wrapped Adaptor implements
// ConfigModificationListener.
type configModifiedAdaptorBridge struct {
	*adaptorBridge
	notify func(changedKeys []string)
}

func (b *configModifiedAdaptorBridge) ConfigModified(changedKeys []string) { b.notify(changedKeys) }

// incrementalConfigModifiedAdaptorBridge satisfies both optional
// capabilities at once, for an Adaptor implementing both.
type incrementalConfigModifiedAdaptorBridge struct {
	*adaptorBridge
	poll   func(ctx context.Context) error
	notify func(changedKeys []string)
}

func (b *incrementalConfigModifiedAdaptorBridge) PollIncremental(ctx context.Context) error {
	return b.poll(ctx)
}
func (b *incrementalConfigModifiedAdaptorBridge) ConfigModified(changedKeys []string) {
	b.notify(changedKeys)
}

// wrapAdaptor builds the httpapi.Adaptor the controller drives, detecting
// the optional incremental-polling and config-modification capabilities
// the same way the reference GsaCommunicationHandler does with instanceof
// checks.
func wrapAdaptor(impl Adaptor, codec *docidcodec.Codec, actx *adaptorContext) httpapi.Adaptor {
	bridge := newAdaptorBridge(impl, codec, actx)
	incremental, isIncremental := impl.(PollingIncrementalAdaptor)
	listener, isListener := impl.(ConfigModificationListener)

	switch {
	case isIncremental && isListener:
		return &incrementalConfigModifiedAdaptorBridge{adaptorBridge: bridge, poll: incremental.PollIncremental, notify: listener.ConfigModified}
	case isIncremental:
		return &incrementalAdaptorBridge{adaptorBridge: bridge, poll: incremental.PollIncremental}
	case isListener:
		return &configModifiedAdaptorBridge{adaptorBridge: bridge, notify: listener.ConfigModified}
	default:
		return bridge
	}
}

// requestBridge adapts an httpapi.Request into the public Request.
type requestBridge struct {
	inner httpapi.Request
}

func (r *requestBridge) DocId() DocId { return DocId{id: r.inner.DocId()} }
func (r *requestBridge) HasChangedSinceLastAccess(lastModified time.Time) bool {
	return r.inner.HasChangedSinceLastAccess(lastModified)
}
func (r *requestBridge) LastAccessTime() time.Time { return r.inner.LastAccessTime() }

// responseBridge adapts an httpapi.Response into the public Response,
// resolving an Acl's Parent DocId to its encoded URL since the wire
// contract carries a URL, not a DocId.
type responseBridge struct {
	inner httpapi.Response
	codec *docidcodec.Codec
}

func (r *responseBridge) RespondNotModified()                { r.inner.RespondNotModified() }
func (r *responseBridge) RespondNotFound()                   { r.inner.RespondNotFound() }
func (r *responseBridge) SetContentType(contentType string)  { r.inner.SetContentType(contentType) }
func (r *responseBridge) SetMetadata(m Metadata)              { r.inner.SetMetadata(map[string]string(m)) }
func (r *responseBridge) SetAcl(acl Acl) {
	r.inner.SetAcl(httpapi.AclFragment{
		PermitUsers:  acl.PermitUsers,
		DenyUsers:    acl.DenyUsers,
		PermitGroups: acl.PermitGroups,
		DenyGroups:   acl.DenyGroups,
		ParentURL:    parentURL(acl, r.codec),
		InheritFrom:  inheritanceRuleName(acl.Rule),
	})
}
func (r *responseBridge) Writer() io.Writer { return r.inner.Writer() }

func parentURL(acl Acl, codec *docidcodec.Codec) string {
	if acl.Parent == nil {
		return ""
	}
	return codec.Encode(acl.Parent.String())
}

// docIdPusherBridge adapts an httpapi.DocIdPusher (in practice
// *docidsender.Sender) into the public DocIdPusher.
type docIdPusherBridge struct {
	inner httpapi.DocIdPusher
	codec *docidcodec.Codec
}

func (p *docIdPusherBridge) PushRecords(ctx context.Context, records []DocIdRecord, handler PushErrorHandler) (*DocIdRecord, error) {
	converted := make([]docidsender.Record, len(records))
	for i, r := range records {
		converted[i] = docidsender.Record{
			Id:               r.DocId.String(),
			LastModified:     r.LastModified,
			Delete:           r.Delete,
			CrawlImmediately: r.CrawlImmediately,
			Lock:             r.Lock,
			ResultLink:       r.ResultLink,
			Metadata:         map[string]string(r.Metadata),
		}
	}

	failed, err := p.inner.PushRecords(ctx, converted, wrapPushErrorHandler(handler))
	if failed == nil {
		return nil, err
	}
	return &DocIdRecord{DocId: DocId{id: failed.Id}}, err
}

func (p *docIdPusherBridge) PushNamedResources(ctx context.Context, resources map[DocId]Acl, handler PushErrorHandler) (*DocId, error) {
	converted := make([]docidsender.NamedResource, 0, len(resources))
	for id, acl := range resources {
		converted = append(converted, docidsender.NamedResource{
			Id: id.String(),
			Acl: feedAclFragment(acl, p.codec),
		})
	}

	failed, err := p.inner.PushNamedResources(ctx, converted, wrapPushErrorHandler(handler))
	if failed == nil {
		return nil, err
	}
	id := DocId{id: *failed}
	return &id, err
}

func feedAclFragment(acl Acl, codec *docidcodec.Codec) feed.AclFragment {
	return feed.AclFragment{
		PermitUsers:  acl.PermitUsers,
		DenyUsers:    acl.DenyUsers,
		PermitGroups: acl.PermitGroups,
		DenyGroups:   acl.DenyGroups,
		ParentURL:    parentURL(acl, codec),
		InheritFrom:  inheritanceRuleName(acl.Rule),
	}
}

func inheritanceRuleName(r InheritanceRule) string {
	switch r {
	case ParentDominates:
		return "parent-overrides"
	case AndBothPermit:
		return "and-both-permit"
	case OrEitherPermit:
		return "or-either-permit"
	default:
		return "leaf-node"
	}
}

// pushErrorHandlerBridge adapts a public PushErrorHandler into
// docidsender.ErrorHandler.
type pushErrorHandlerBridge struct {
	inner PushErrorHandler
}

func wrapPushErrorHandler(h PushErrorHandler) docidsender.ErrorHandler {
	if h == nil {
		return nil
	}
	return &pushErrorHandlerBridge{inner: h}
}

func (h *pushErrorHandlerBridge) HandleFailedToSend(err error, attempt int) docidsender.RetryDecision {
	return retryDecisionTo(h.inner.HandleFailedToSend(err, attempt))
}

func retryDecisionTo(d RetryDecision) docidsender.RetryDecision {
	switch d {
	case AbortPush:
		return docidsender.AbortPush
	case ContinueSkippingBatch:
		return docidsender.ContinueSkippingBatch
	default:
		return docidsender.RetryPush
	}
}

// getDocIdsErrorHandlerBridge adapts a public GetDocIdsErrorHandler into
// controller.GetDocIdsErrorHandler.
type getDocIdsErrorHandlerBridge struct {
	inner GetDocIdsErrorHandler
}

func (h *getDocIdsErrorHandlerBridge) HandleFailedToSend(err error, attempt int) docidsender.RetryDecision {
	return retryDecisionTo(h.inner.HandleFailedToSend(err, attempt))
}

func (h *getDocIdsErrorHandlerBridge) HandleFailedToGetDocIds(err error) docidsender.RetryDecision {
	return retryDecisionTo(h.inner.HandleFailedToGetDocIds(err))
}

// defaultGetDocIdsErrorHandler answers RetryPush to every failure, matching
// the reference implementation's DefaultGetDocIdsErrorHandler; the callers
// cap the attempts (maxSendAttempts in docidsender, maxGetDocIdsAttempts in
// the controller).
type defaultGetDocIdsErrorHandler struct{}

func (defaultGetDocIdsErrorHandler) HandleFailedToSend(error, int) RetryDecision { return RetryPush }
func (defaultGetDocIdsErrorHandler) HandleFailedToGetDocIds(error) RetryDecision { return RetryPush }

// adaptorContext implements AdaptorContext, handed to the wrapped Adaptor's
// Init.
type adaptorContext struct {
	cfgMgr *config.Manager
	pusher *docidsender.Sender
	codec  *docidcodec.Codec
	ctrl   *controller.Controller

	mu      sync.Mutex
	current GetDocIdsErrorHandler
}

func newAdaptorContext(cfgMgr *config.Manager, pusher *docidsender.Sender, codec *docidcodec.Codec) *adaptorContext {
	return &adaptorContext{cfgMgr: cfgMgr, pusher: pusher, codec: codec, current: defaultGetDocIdsErrorHandler{}}
}

func (a *adaptorContext) Config() ConfigReader { return a.cfgMgr.Reader() }

func (a *adaptorContext) DocIdPusher() DocIdPusher {
	return &docIdPusherBridge{inner: a.pusher, codec: a.codec}
}

func (a *adaptorContext) EncodeDocId(id DocId) string { return a.codec.Encode(id.String()) }

func (a *adaptorContext) SetGetDocIdsErrorHandler(handler GetDocIdsErrorHandler) {
	if handler == nil {
		handler = defaultGetDocIdsErrorHandler{}
	}
	a.mu.Lock()
	a.current = handler
	a.mu.Unlock()
	if a.ctrl != nil {
		a.ctrl.SetGetDocIdsErrorHandler(&getDocIdsErrorHandlerBridge{inner: handler})
	}
}

func (a *adaptorContext) GetDocIdsErrorHandler() GetDocIdsErrorHandler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}
