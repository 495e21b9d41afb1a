// Package samlutil wraps the SAML Web-Browser-SSO AuthnRequest/Response
// flow (via github.com/crewjam/saml) and hand-builds the batch
// AuthzDecisionQuery/Response SOAP messages the Appliance uses for
// authorization checks, which crewjam/saml has no support for since it is
// not part of the Web-Browser-SSO profile.
package samlutil

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/crewjam/saml"
	dsig "github.com/russellhaering/goxmldsig"
)

// Identity is the mirrored authenticated-principal shape used across
// internal packages, matching internal/session.Identity by field.
type Identity struct {
	Username string
	Groups   []string
}

// ServiceProvider wraps crewjam/saml.ServiceProvider with the adaptor's
// AuthnRequest/Response flow: build a redirect-binding request, and
// validate an inbound POST-binding response.
type ServiceProvider struct {
	sp saml.ServiceProvider

	initOnce sync.Once
	initErr  error
}

// Config carries everything needed to build a ServiceProvider.
type Config struct {
	EntityID    string
	AcsURL      string
	IdpMetadata *saml.EntityDescriptor

	// Key/Certificate sign outgoing AuthnRequests (RSA-SHA256) when both
	// are set; leave either nil to send unsigned requests (the IdP is
	// still free to require a signed Response).
	Key         crypto.Signer
	Certificate *x509.Certificate
}

// New builds a ServiceProvider from cfg. IdP metadata must already be
// fetched and parsed by the caller (e.g. at startup, from
// Config.IdpMetadataURL via FetchIdpMetadata); New itself makes no
// network call.
func New(cfg Config) (*ServiceProvider, error) {
	acsURL, err := url.Parse(cfg.AcsURL)
	if err != nil {
		return nil, fmt.Errorf("samlutil: invalid acs url: %w", err)
	}

	var rsaKey *rsa.PrivateKey
	if cfg.Key != nil {
		var ok bool
		rsaKey, ok = cfg.Key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("samlutil: signing key must be *rsa.PrivateKey, got %T", cfg.Key)
		}
	}

	s := &ServiceProvider{
		sp: saml.ServiceProvider{
			EntityID:    cfg.EntityID,
			AcsURL:      *acsURL,
			IDPMetadata: cfg.IdpMetadata,
			Key:         rsaKey,
			Certificate: cfg.Certificate,
		},
	}
	if rsaKey != nil && cfg.Certificate != nil {
		s.sp.SignatureMethod = dsig.RSASHA256SignatureMethod
	}
	return s, nil
}

// AuthnRequest is a constructed request ready to redirect the browser to
// the IdP, plus the request ID the caller must remember (in the session)
// to validate the eventual Response's InResponseTo.
type AuthnRequest struct {
	ID          string
	RedirectURL *url.URL
}

// MakeAuthnRequest builds an HTTP-Redirect-binding AuthnRequest carrying
// relayState (the caller's session-correlation token).
func (s *ServiceProvider) MakeAuthnRequest(relayState string) (*AuthnRequest, error) {
	req, err := s.sp.MakeAuthenticationRequest(
		s.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding),
		saml.HTTPRedirectBinding,
		saml.HTTPPostBinding,
	)
	if err != nil {
		return nil, fmt.Errorf("samlutil: build authn request: %w", err)
	}
	redirectURL, err := req.Redirect(relayState, &s.sp)
	if err != nil {
		return nil, fmt.Errorf("samlutil: build redirect: %w", err)
	}
	return &AuthnRequest{ID: req.ID, RedirectURL: redirectURL}, nil
}

// ParseResponse validates an inbound SAML Response (signature, timing,
// audience, and that InResponseTo matches one of possibleRequestIDs — the
// caller's replay defense) and extracts the authenticated Identity.
func (s *ServiceProvider) ParseResponse(r *http.Request, possibleRequestIDs []string) (*Identity, error) {
	assertion, err := s.sp.ParseResponse(r, possibleRequestIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthnFailure, err)
	}
	return identityFromAssertion(assertion), nil
}

func identityFromAssertion(assertion *saml.Assertion) *Identity {
	id := &Identity{}
	if assertion.Subject != nil && assertion.Subject.NameID != nil {
		id.Username = assertion.Subject.NameID.Value
	}
	for _, stmt := range assertion.AttributeStatements {
		for _, attr := range stmt.Attributes {
			if attr.Name != "groups" && attr.FriendlyName != "groups" {
				continue
			}
			for _, v := range attr.Values {
				id.Groups = append(id.Groups, v.Value)
			}
		}
	}
	return id
}
