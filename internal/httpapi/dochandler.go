package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

// DocHandler serves document content at <basePath>/<encodedDocId>. Each
// request moves through a fixed sequence: RECV (parse the path), DECODE
// (codec.Decode into a DocId), AUTHZ (determine security class from the
// anonymous decision, authenticate via SAML if the document isn't public,
// re-check the authenticated principal, then gate on source IP), INVOKE
// (call Adaptor.GetDocContent), EMIT (flush the buffered Response).
type DocHandler struct {
	adaptor   Adaptor
	codec     *docidcodec.Codec
	sessions  *session.Manager
	journal   *journal.Journal
	authn     *AuthnHandler
	allowlist sourceAllowlist
	logger    *slog.Logger
}

// NewDocHandler builds a DocHandler. authn may be nil when the deployment
// has no SAML service provider configured, in which case any document that
// isn't anonymously permitted is unreachable without a preexisting
// authenticated session (there is nowhere to redirect an unauthenticated
// caller). allowedCIDRs restricts document fetches the same way it
// restricts the batch-authz endpoint; empty disables the check.
func NewDocHandler(adaptor Adaptor, codec *docidcodec.Codec, sessions *session.Manager, j *journal.Journal, authn *AuthnHandler, allowedCIDRs []string, logger *slog.Logger) (*DocHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	allowlist, err := newSourceAllowlist(allowedCIDRs)
	if err != nil {
		return nil, err
	}
	return &DocHandler{
		adaptor: adaptor, codec: codec, sessions: sessions, journal: j,
		authn: authn, allowlist: allowlist, logger: logger,
	}, nil
}

func (h *DocHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// RECV
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// DECODE
	docId, err := h.codec.Decode(r.URL.Path)
	if err != nil {
		h.logger.Debug("malformed docid path", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// AUTHZ: the anonymous decision determines the document's security
	// class. Anonymous PERMIT means the document is public and authn is
	// skipped entirely; anything else requires an authenticated session,
	// re-checked against the real principal.
	anonDecision, err := h.checkAuthz(r.Context(), session.Identity{}, docId)
	if err != nil {
		h.logger.Error("adaptor authorization check failed", "docid", docId, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if anonDecision != samlutil.AuthzPermit {
		identity, authenticated := h.authenticatedIdentity(r)
		if !authenticated {
			if h.authn == nil {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.authn.InitiateFor(w, r, r.URL.RequestURI())
			return
		}

		decision, err := h.checkAuthz(r.Context(), identity, docId)
		if err != nil {
			h.logger.Error("adaptor authorization check failed", "docid", docId, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if decision != samlutil.AuthzPermit {
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	if !h.allowlist.allows(r.RemoteAddr) {
		h.logger.Info("rejected document fetch from disallowed source", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	// INVOKE
	req := newRequest(r, docId)
	resp := newResponse(w)
	if err := h.adaptor.GetDocContent(r.Context(), req, resp); err != nil {
		h.logger.Error("adaptor content fetch failed", "docid", docId, "error", err)
		if !resp.sent {
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	// EMIT: GetDocContent is required to write via resp.Writer() or call
	// one of RespondNotModified/RespondNotFound; if it did neither, that
	// is an adaptor fault, not a client-visible 200 with an empty body.
	if !resp.sent {
		h.logger.Error("adaptor returned without responding", "docid", docId)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.journal.RecordDocServed()
}

// checkAuthz asks the adaptor about a single docId for identity and treats
// INDETERMINATE the same as DENY, per spec: any non-PERMIT result blocks
// the request.
func (h *DocHandler) checkAuthz(ctx context.Context, identity session.Identity, docId string) (samlutil.AuthzDecision, error) {
	decisions, err := h.adaptor.IsUserAuthorized(ctx, identity, []string{docId})
	h.journal.RecordAuthzCheck()
	if err != nil {
		return samlutil.AuthzIndeterminate, err
	}
	return decisions[docId], nil
}

func (h *DocHandler) authenticatedIdentity(r *http.Request) (session.Identity, bool) {
	sess, ok := h.sessions.GetSession(nil, r, false) //nolint:staticcheck // read-only lookup, no cookie to set
	if !ok {
		return session.Identity{}, false
	}

	var identity session.Identity
	var found bool
	h.sessions.WithSession(sess.ID, func(s *session.Session) {
		if s.Identity != nil {
			identity = *s.Identity
			found = true
		}
	})
	return identity, found
}
