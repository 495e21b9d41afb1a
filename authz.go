package adaptor

// AuthzStatus is the result of an authorization decision for one DocId.
type AuthzStatus int

const (
	// Indeterminate means the adaptor could not determine access; the
	// document handler treats it as Deny, and the batch authz endpoint
	// reports it to the Appliance as Indeterminate (spec: "Indeterminate is
	// used for unknown DocIds and for adaptor errors").
	Indeterminate AuthzStatus = iota
	Permit
	Deny
)

// String implements fmt.Stringer for logging.
func (s AuthzStatus) String() string {
	switch s {
	case Permit:
		return "PERMIT"
	case Deny:
		return "DENY"
	default:
		return "INDETERMINATE"
	}
}

// AuthnIdentity is an authenticated principal, extracted from a SAML
// assertion's Subject/NameID and AttributeStatement.
type AuthnIdentity struct {
	Username string
	Groups   []string

	// Password is set only for adaptors that authenticate against the
	// repository using a forwarded credential; nil otherwise.
	Password *string
}

// AnonymousIdentity is passed to IsUserAuthorized to probe whether a
// document's security class permits unauthenticated access.
var AnonymousIdentity = AuthnIdentity{}
