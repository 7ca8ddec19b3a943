package session

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const cookieName = "session_id"

// Manager issues session cookies and resolves them to handles.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	logger *log.Logger
}

// NewManager creates a Manager over store.
func NewManager(store Store, ttl time.Duration, secure bool, logger *log.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, secure: secure, logger: logger}
}

// FromRequest returns the session named by the request cookie, or nil.
func (m *Manager) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return nil
	}
	return New(cookie.Value, m.store)
}

// Middleware attaches a session to every request, issuing a cookie when the
// browser does not have one yet.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.FromRequest(r)
		if sess == nil {
			sess = New(uuid.NewString(), m.store)
		}
		m.setCookie(w, sess.ID())
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// Destroy deletes the session and expires its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	m.clearCookie(w)
	if sess == nil {
		return nil
	}
	return m.store.Destroy(ctx, sess.ID())
}

// RunCleanup removes expired sessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.Cleanup(ctx)
			if err != nil {
				m.logger.Warn("session cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				m.logger.Debug("removed expired sessions", "count", n)
			}
		}
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		MaxAge:   -1,
	})
}
