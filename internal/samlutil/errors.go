package samlutil

import "errors"

// ErrAuthnFailure marks a SAML Response that failed signature, timing, or
// audience validation. Handlers respond 403 and clear the session on this
// error, per the AuthnFailure error kind.
var ErrAuthnFailure = errors.New("samlutil: saml response validation failed")

// ErrReplayed marks a batch AuthzDecisionQuery whose IssueInstant is
// outside the accepted freshness window. Freshness is checked before the
// signature, so the query's signature has not been validated.
var ErrReplayed = errors.New("samlutil: authz query outside freshness window")
