package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

// AuthnHandler implements the two legs of the Web-Browser-SSO flow: an
// initiation endpoint that redirects to the IdP, and the assertion consumer
// that validates the POSTed Response and attaches the resulting Identity to
// the caller's session.
type AuthnHandler struct {
	sp       *samlutil.ServiceProvider
	sessions *session.Manager
	logger   *slog.Logger
}

// NewAuthnHandler builds an AuthnHandler.
func NewAuthnHandler(sp *samlutil.ServiceProvider, sessions *session.Manager, logger *slog.Logger) *AuthnHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthnHandler{sp: sp, sessions: sessions, logger: logger}
}

// Initiate is the direct-hit HTTP entry point for the initiation URL; it
// has no caller-supplied resource to return to, so it sends the browser
// back to the site root once authentication completes.
func (h *AuthnHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	h.InitiateFor(w, r, "/")
}

// InitiateFor starts authentication for a request that was triggered by a
// fetch of returnTo: it creates (or reuses) the caller's session, remembers
// the outgoing AuthnRequest ID for later InResponseTo correlation and
// returnTo for the post-authn redirect, and sends the browser to the IdP.
func (h *AuthnHandler) InitiateFor(w http.ResponseWriter, r *http.Request, returnTo string) {
	sess, _ := h.sessions.GetSession(w, r, true)

	req, err := h.sp.MakeAuthnRequest(sess.ID.String())
	if err != nil {
		h.logger.Error("failed to build authn request", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.sessions.WithSession(sess.ID, func(s *session.Session) {
		s.SamlInResponseTo = req.ID
		s.PendingURL = returnTo
	})
	http.Redirect(w, r, req.RedirectURL.String(), http.StatusFound)
}

// AssertionConsumer handles the IdP's POSTed Response. On success it
// attaches the authenticated Identity to the session that initiated the
// request and redirects to the original resource; on failure it clears the
// session's pending correlation state and returns 403.
func (h *AuthnHandler) AssertionConsumer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sess, ok := h.sessions.GetSession(w, r, false)
	if !ok {
		h.logger.Debug("assertion consumer called without a pending session")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var inResponseTo string
	h.sessions.WithSession(sess.ID, func(s *session.Session) {
		inResponseTo = s.SamlInResponseTo
		s.SamlInResponseTo = ""
	})
	if inResponseTo == "" {
		h.logger.Debug("assertion consumer called without a pending session")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if relayState := r.FormValue("RelayState"); relayState != sess.ID.String() {
		h.logger.Info("relay state does not match the session that initiated authn")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	identity, err := h.sp.ParseResponse(r, []string{inResponseTo})
	if err != nil {
		h.logger.Info("saml response validation failed", "error", err)
		h.sessions.Delete(sess.ID)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var returnTo string
	h.sessions.WithSession(sess.ID, func(s *session.Session) {
		s.Identity = &session.Identity{Username: identity.Username, Groups: identity.Groups}
		returnTo = s.PendingURL
		s.PendingURL = ""
	})
	if returnTo == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}
