package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is the session id cookie name
const DefaultCookieName = "qauth.sid"

// Manager ties session records to the transport cookie. The session id is
// opaque; all state lives in the store.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager creates a session manager over the given store
func NewManager(store Store, cookieName string, ttl time.Duration, secure bool) *Manager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the caller's session id and record. A request without a
// session cookie, or with an expired session, yields ("", nil, nil).
func (m *Manager) Load(r *http.Request) (string, *Record, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", nil, nil
	}

	rec, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		return "", nil, err
	}
	if rec == nil {
		return "", nil, nil
	}
	return cookie.Value, rec, nil
}

// Ensure returns the caller's session, creating a fresh one (and setting
// the cookie) when the request carries none.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) (string, *Record, error) {
	id, rec, err := m.Load(r)
	if err != nil {
		return "", nil, err
	}
	if rec != nil {
		return id, rec, nil
	}

	id = uuid.NewString()
	rec = &Record{}
	http.SetCookie(w, m.cookie(id, int(m.ttl.Seconds())))
	return id, rec, nil
}

// Save writes the record through to the store, synchronously
func (m *Manager) Save(ctx context.Context, id string, rec *Record) error {
	return m.store.Set(ctx, id, rec)
}

// Destroy removes the session from the store and expires the cookie. The
// store delete is acknowledged before this returns; callers must not write
// a response that depends on the session being gone until it has.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
