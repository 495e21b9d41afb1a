package samlutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// AuthzDecision mirrors the root package's AuthzStatus by shape, avoiding
// an import of the root package from an internal one.
type AuthzDecision int

const (
	AuthzIndeterminate AuthzDecision = iota
	AuthzPermit
	AuthzDeny
)

func (d AuthzDecision) samlValue() string {
	switch d {
	case AuthzPermit:
		return "Permit"
	case AuthzDeny:
		return "Deny"
	default:
		return "Indeterminate"
	}
}

// AuthzQuery is one parsed <AuthzDecisionQuery> from a batched request:
// one Appliance POST to /saml-authz carries many of these, one per
// requested resource.
type AuthzQuery struct {
	ID       string
	Resource string
	Subject  string
	Issued   time.Time

	elem *etree.Element
}

// AuthzSigner produces signed batch AuthzDecisionQuery Responses. The
// signing context wraps a private key and certificate and is expensive
// enough to build (goxmldsig hashes and canonicalizes against it) that it
// is constructed once, guarded by sync.Once, and reused — the same "guard
// a one-time bootstrap" shape as the original's
// DefaultBootstrap.bootstrap() call, translated to a lazily-initialized
// per-signer value instead of an explicit startup step.
type AuthzSigner struct {
	once func() (*dsig.SigningContext, error)
}

// NewAuthzSigner builds an AuthzSigner around keyStore. The signing
// context is built at most once, on first use.
func NewAuthzSigner(keyStore dsig.X509KeyStore) *AuthzSigner {
	s := &AuthzSigner{}
	s.once = sync.OnceValues(func() (*dsig.SigningContext, error) {
		ctx := dsig.NewDefaultSigningContext(keyStore)
		if err := ctx.SetSignatureMethod(dsig.RSASHA256SignatureMethod); err != nil {
			return nil, fmt.Errorf("samlutil: set signature method: %w", err)
		}
		return ctx, nil
	})
	return s
}

// SignResponse builds and signs a SOAP-enveloped batch AuthzDecisionQuery
// Response for the given queries and their decisions (same order,
// same length).
func (s *AuthzSigner) SignResponse(inResponseToID string, queries []AuthzQuery, decisions []AuthzDecision) (*etree.Document, error) {
	if len(queries) != len(decisions) {
		return nil, fmt.Errorf("samlutil: %d queries but %d decisions", len(queries), len(decisions))
	}

	ctx, err := s.once()
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	envelope := doc.CreateElement("soap11:Envelope")
	envelope.CreateAttr("xmlns:soap11", "http://schemas.xmlsoap.org/soap/envelope/")
	body := envelope.CreateElement("soap11:Body")

	response := body.CreateElement("samlp:Response")
	response.CreateAttr("xmlns:samlp", "urn:oasis:names:tc:SAML:2.0:protocol")
	response.CreateAttr("xmlns:saml", "urn:oasis:names:tc:SAML:2.0:assertion")
	response.CreateAttr("InResponseTo", inResponseToID)
	response.CreateAttr("IssueInstant", time.Now().UTC().Format(time.RFC3339))
	response.CreateAttr("Version", "2.0")

	status := response.CreateElement("samlp:Status")
	status.CreateElement("samlp:StatusCode").CreateAttr("Value", "urn:oasis:names:tc:SAML:2.0:status:Success")

	for i, q := range queries {
		assertion := response.CreateElement("saml:Assertion")
		assertion.CreateAttr("xmlns:saml", "urn:oasis:names:tc:SAML:2.0:assertion")
		assertion.CreateAttr("Version", "2.0")
		assertion.CreateAttr("IssueInstant", time.Now().UTC().Format(time.RFC3339))

		subject := assertion.CreateElement("saml:Subject")
		subject.CreateElement("saml:NameID").SetText(q.Subject)

		stmt := assertion.CreateElement("saml:AuthzDecisionStatement")
		stmt.CreateAttr("Resource", q.Resource)
		stmt.CreateAttr("Decision", decisions[i].samlValue())
		action := stmt.CreateElement("saml:Action")
		action.CreateAttr("Namespace", "urn:oasis:names:tc:SAML:1.0:action:ghpp")
		action.SetText("GET")

		signed, err := ctx.SignEnveloped(assertion)
		if err != nil {
			return nil, fmt.Errorf("samlutil: sign assertion for %s: %w", q.Resource, err)
		}
		response.RemoveChild(assertion)
		response.AddChild(signed)
	}

	return doc, nil
}

// ParseAuthzQueries extracts every <samlp:AuthzDecisionQuery> from a
// batched SOAP request body. By default the Appliance does not sign these
// requests, and the source-IP allow-list is the batch endpoint's trust
// boundary; a deployment that sets saml.require_signed_assertions signs
// each query, in which case the caller passes the parsed queries to an
// AuthzVerifier before trusting them.
func ParseAuthzQueries(body []byte) ([]AuthzQuery, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("samlutil: parse authz query batch: %w", err)
	}

	elems := doc.FindElements("//AuthzDecisionQuery")
	if len(elems) == 0 {
		elems = doc.FindElements("//*[local-name()='AuthzDecisionQuery']")
	}

	queries := make([]AuthzQuery, 0, len(elems))
	for _, el := range elems {
		q := AuthzQuery{
			ID:       el.SelectAttrValue("ID", ""),
			Resource: el.SelectAttrValue("Resource", ""),
			elem:     el,
		}
		if v := el.SelectAttrValue("IssueInstant", ""); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				q.Issued = t
			}
		}
		if subj := el.FindElement(".//NameID"); subj != nil {
			q.Subject = subj.Text()
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// AuthzVerifier validates the signature on an inbound batch
// AuthzDecisionQuery request and checks freshness.
type AuthzVerifier struct {
	validationCtx *dsig.ValidationContext
	maxSkew       time.Duration
}

// NewAuthzVerifier builds an AuthzVerifier that trusts certificates in
// certStore and rejects queries whose IssueInstant is more than maxSkew
// away from now.
func NewAuthzVerifier(certStore dsig.X509CertificateStore, maxSkew time.Duration) *AuthzVerifier {
	return &AuthzVerifier{
		validationCtx: dsig.NewDefaultValidationContext(certStore),
		maxSkew:       maxSkew,
	}
}

// Verify validates el's signature and returns the validated (signature-
// stripped) element, or ErrAuthnFailure if the signature does not check
// out, or ErrReplayed if issued is outside the freshness window.
func (v *AuthzVerifier) Verify(el *etree.Element, issued time.Time) (*etree.Element, error) {
	if d := time.Since(issued); d < -v.maxSkew || d > v.maxSkew {
		return nil, ErrReplayed
	}
	validated, err := v.validationCtx.Validate(el)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthnFailure, err)
	}
	return validated, nil
}

// VerifyAll validates every query's signature and freshness, stopping at
// the first failure. Queries whose ParseAuthzQueries element is missing
// (there is no production path that produces one) are treated as
// unverifiable.
func (v *AuthzVerifier) VerifyAll(queries []AuthzQuery) error {
	for _, q := range queries {
		if q.elem == nil {
			return fmt.Errorf("samlutil: authz query %s: %w", q.ID, ErrAuthnFailure)
		}
		if _, err := v.Verify(q.elem, q.Issued); err != nil {
			return fmt.Errorf("samlutil: authz query %s: %w", q.ID, err)
		}
	}
	return nil
}
