// Package session implements the server-side, cookie-bound session store:
// server-held state is the sole source of truth, the cookie carries only an
// opaque, cryptographically random identifier, and the map is segmented
// (striped) so that concurrent access to different sessions never
// contends on the same lock.
package session

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// defaultLogger is a package-level swappable logger, following the same
// standalone-library convention as internal/docidcodec.
var defaultLogger = log.New(log.Writer(), "session: ", log.LstdFlags)

// SetLogger replaces the package-level logger used for sweep diagnostics.
func SetLogger(l *log.Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Session is per-client server-side state. All fields below CreatedAt are
// only ever touched while the owning Manager's stripe lock for this
// session's ID is held; callers outside the session package reach that
// lock through Manager.WithSession rather than locking directly, since a
// *Session returned by GetSession outlives the lock GetSession itself
// held.
type Session struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	LastAccess time.Time

	// SamlInResponseTo correlates an in-flight SAML AuthnRequest to the
	// Response that answers it; empty when no authn is in flight.
	SamlInResponseTo string
	// PendingURL is the document URL that triggered authentication, saved
	// so the assertion consumer can send the browser back to it once the
	// SAML flow completes; empty when no authn is in flight.
	PendingURL string
	// Identity is set once the SAML response has been validated.
	Identity *Identity
}

// Identity mirrors the authenticated-principal shape without importing the
// root package, avoiding an import cycle (the root package imports
// session, not the reverse).
type Identity struct {
	Username string
	Groups   []string
}

// touch updates LastAccess to now. Callers must hold the session's stripe
// lock.
func (s *Session) touch(now time.Time) {
	s.LastAccess = now
}
