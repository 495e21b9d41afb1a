package session

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opendocfeed/adaptor/internal/assert"
	"github.com/opendocfeed/adaptor/internal/bg"
)

// stripeCount is the number of independent lock+map shards the Manager
// spreads sessions across, keyed by the XOR of the session UUID's bytes.
const stripeCount = 32

type stripe struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// Manager owns the session store for one listening port. Its cookie name
// embeds the port so two adaptor instances on different ports sharing a
// browser profile never collide.
type Manager struct {
	cookieName string
	secure     bool
	ttl        time.Duration
	maxSweep   time.Duration

	stripes [stripeCount]*stripe

	sweepMu     sync.Mutex
	lastSweep   time.Time
	sweepRunner bg.Runner
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithSweepRunner overrides the background runner used for the throttled
// expiry sweep; tests use bg.Sync so sweeps happen inline and
// deterministically.
func WithSweepRunner(r bg.Runner) Option {
	return func(m *Manager) { m.sweepRunner = r }
}

// NewManager builds a Manager. port names the cookie; ttl is how long an
// idle session survives; maxSweep bounds how often the expiry sweep runs
// (at most once per maxSweep, triggered opportunistically by GetSession).
func NewManager(port int, secure bool, ttl, maxSweep time.Duration, opts ...Option) *Manager {
	m := &Manager{
		cookieName:  cookieNameForPort(port),
		secure:      secure,
		ttl:         ttl,
		maxSweep:    maxSweep,
		sweepRunner: bg.Async{},
	}
	for i := range m.stripes {
		m.stripes[i] = &stripe{sessions: make(map[uuid.UUID]*Session)}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func cookieNameForPort(port int) string {
	return "sessid_" + strconv.Itoa(port)
}

func (m *Manager) stripeFor(id uuid.UUID) *stripe {
	var h byte
	for _, b := range id {
		h ^= b
	}
	return m.stripes[int(h)%stripeCount]
}

// GetSession returns the session named by r's cookie. If none is found and
// createIfAbsent is true, a new session is created, its cookie set on w,
// and returned; otherwise GetSession returns nil, false.
//
// Every call updates the found session's last-access time and
// opportunistically triggers a throttled expiry sweep.
func (m *Manager) GetSession(w http.ResponseWriter, r *http.Request, createIfAbsent bool) (*Session, bool) {
	defer m.maybeSweep()

	if c, err := r.Cookie(m.cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			st := m.stripeFor(id)
			st.mu.Lock()
			sess, ok := st.sessions[id]
			if ok {
				sess.touch(time.Now())
			}
			st.mu.Unlock()
			if ok {
				return sess, true
			}
		}
	}

	if !createIfAbsent {
		return nil, false
	}

	id := uuid.New()
	now := time.Now()
	sess := &Session{ID: id, CreatedAt: now, LastAccess: now}

	st := m.stripeFor(id)
	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, true
}

// Delete removes a session immediately, e.g. after an authn failure clears
// SAML state.
func (m *Manager) Delete(id uuid.UUID) {
	st := m.stripeFor(id)
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// WithSession runs fn with exclusive access to the session named by id,
// holding its stripe lock for the duration. It is the only sanctioned way
// to read or mutate the SAML-flow fields on a *Session obtained earlier
// from GetSession, since that pointer outlives the lock GetSession held
// while looking it up. WithSession reports whether the session still
// existed; fn is not called if it didn't.
func (m *Manager) WithSession(id uuid.UUID, fn func(*Session)) bool {
	st := m.stripeFor(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

// maybeSweep runs Sweep in the background at most once per maxSweep.
func (m *Manager) maybeSweep() {
	m.sweepMu.Lock()
	now := time.Now()
	if now.Sub(m.lastSweep) < m.maxSweep {
		m.sweepMu.Unlock()
		return
	}
	m.lastSweep = now
	m.sweepMu.Unlock()

	m.sweepRunner.Do(m.Sweep)
}

// Sweep removes every session whose last access is older than ttl. It is
// safe to call directly (tests do, via bg.Sync) or let GetSession trigger
// it opportunistically.
func (m *Manager) Sweep() {
	now := time.Now()
	cutoff := now.Add(-m.ttl)
	for _, st := range m.stripes {
		st.mu.Lock()
		for id, sess := range st.sessions {
			assert.Invariant(!sess.LastAccess.After(now), "session last-access must not be in the future")
			if sess.LastAccess.Before(cutoff) {
				delete(st.sessions, id)
			}
		}
		st.mu.Unlock()
	}
}

// Count returns the total number of live sessions across all stripes, for
// diagnostics and tests.
func (m *Manager) Count() int {
	n := 0
	for _, st := range m.stripes {
		st.mu.Lock()
		n += len(st.sessions)
		st.mu.Unlock()
	}
	return n
}
