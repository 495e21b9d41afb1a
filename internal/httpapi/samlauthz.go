package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

// maxAuthzBatchBody bounds how much of a single batch request this endpoint
// will buffer before giving up; a hostile or misconfigured Appliance
// sending an unbounded body should not be able to exhaust memory.
const maxAuthzBatchBody = 4 << 20

// AuthzHandler serves the batch AuthzDecisionQuery endpoint the Appliance
// polls to check access on many resources in one round trip. Unlike the
// document and authn endpoints, the caller here is the Appliance itself,
// not a browser, so trust is established by source IP rather than by
// session cookie or client certificate.
type AuthzHandler struct {
	adaptor   Adaptor
	codec     *docidcodec.Codec
	signer    *samlutil.AuthzSigner
	verifier  *samlutil.AuthzVerifier
	allowlist sourceAllowlist
	logger    *slog.Logger
}

// NewAuthzHandler builds an AuthzHandler. allowedCIDRs lists the CIDR
// blocks permitted to call this endpoint; a request from any other source
// is rejected before the body is even read. An empty list disables the
// check, matching a deployment that has no configured GsaAllowedIPs.
// verifier is optional: nil means the deployment trusts the source-IP
// allow-list alone (saml.require_signed_assertions unset); when set, every
// batch is additionally required to carry a valid signature on each query.
func NewAuthzHandler(adaptor Adaptor, codec *docidcodec.Codec, signer *samlutil.AuthzSigner, verifier *samlutil.AuthzVerifier, allowedCIDRs []string, logger *slog.Logger) (*AuthzHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	allowlist, err := newSourceAllowlist(allowedCIDRs)
	if err != nil {
		return nil, err
	}
	return &AuthzHandler{adaptor: adaptor, codec: codec, signer: signer, verifier: verifier, allowlist: allowlist, logger: logger}, nil
}

func (h *AuthzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.allowlist.allows(r.RemoteAddr) {
		h.logger.Info("rejected authz batch from disallowed source", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthzBatchBody+1))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(body) > maxAuthzBatchBody {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	queries, err := samlutil.ParseAuthzQueries(body)
	if err != nil {
		h.logger.Info("malformed authz batch", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(queries) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.VerifyAll(queries); err != nil {
			h.logger.Info("authz batch failed signature verification", "error", err)
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	decisions, err := h.decide(r.Context(), queries)
	if err != nil {
		h.logger.Error("adaptor authorization batch failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	doc, err := h.signer.SignResponse(queries[0].ID, queries, decisions)
	if err != nil {
		h.logger.Error("failed to sign authz batch response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := doc.WriteTo(w); err != nil {
		h.logger.Error("failed to write authz batch response", "error", err)
	}
}

// decide maps each query's raw resource URL back to a DocId via the codec
// before asking the adaptor, since the Appliance sends absolute URLs, not
// bare DocIds. A URL that doesn't decode to a known DocId shape is
// indeterminate rather than asked about, matching how a codec.Decode
// failure is handled in the document handler. If the adaptor returns an
// error for a subject, every query for that subject is indeterminate.
func (h *AuthzHandler) decide(ctx context.Context, queries []samlutil.AuthzQuery) ([]samlutil.AuthzDecision, error) {
	docIds := make([]string, len(queries))
	decoded := make([]bool, len(queries))
	bySubject := make(map[string][]string)
	for i, q := range queries {
		docId, err := h.codec.Decode(q.Resource)
		if err != nil {
			h.logger.Info("batch authz resource does not decode to a known docid", "resource", q.Resource, "error", err)
			continue
		}
		docIds[i] = docId
		decoded[i] = true
		bySubject[q.Subject] = append(bySubject[q.Subject], docId)
	}

	byResource := make(map[string]map[string]samlutil.AuthzDecision)
	for subject, resources := range bySubject {
		result, err := h.adaptor.IsUserAuthorized(ctx, session.Identity{Username: subject}, resources)
		if err != nil {
			h.logger.Error("adaptor authorization batch failed", "subject", subject, "error", err)
			continue
		}
		byResource[subject] = result
	}

	decisions := make([]samlutil.AuthzDecision, len(queries))
	for i, q := range queries {
		if !decoded[i] {
			decisions[i] = samlutil.AuthzIndeterminate
			continue
		}
		decisions[i] = byResource[q.Subject][docIds[i]]
	}
	return decisions, nil
}
