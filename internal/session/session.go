// Package session manages per-browser pipeline state with signed cookies.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/moodreel/internal/pipeline"
)

const (
	sessionCookieName = "moodreel_session"
	sessionDuration   = 24 * time.Hour
	sweepInterval     = 10 * time.Minute
)

// Session binds pipeline state to one browser.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	mu    sync.Mutex
	state *pipeline.State
}

// WithState runs fn with exclusive access to the session's pipeline state.
// Handlers for the same session serialize here so concurrent uploads and
// analyses cannot interleave half-updated state.
func (s *Session) WithState(fn func(st *pipeline.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Reset discards all pipeline state, keeping the session itself alive.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state = pipeline.NewState()
	s.mu.Unlock()
}

// Manager handles session creation, lookup and expiry.
type Manager struct {
	secret   []byte
	sessions map[string]*Session
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager and starts the expiry sweeper.
func NewManager(secret string) *Manager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "moodreel-dev-secret-change-in-production"
	}
	m := &Manager{
		secret:   []byte(secret),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Stop terminates the background expiry sweeper.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for id, s := range m.sessions {
				if now.After(s.ExpiresAt) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Create creates a new session with empty pipeline state.
func (m *Manager) Create() *Session {
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sessionDuration),
		state:     pipeline.NewState(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

// Get retrieves a session by ID. Expired sessions are treated as absent.
func (m *Manager) Get(sessionID string) *Session {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil
	}
	if time.Now().After(session.ExpiresAt) {
		m.Delete(sessionID)
		return nil
	}
	return session
}

// Delete removes a session.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetCookie sets the signed session cookie on the response.
func (m *Manager) SetCookie(w http.ResponseWriter, session *Session) {
	signature := m.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// FromRequest extracts a live session from the request cookie, verifying
// the HMAC signature. Returns nil when there is no valid session.
func (m *Manager) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	parts := strings.SplitN(cookie.Value, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	if !m.verifySignature(parts[0], parts[1]) {
		return nil
	}
	return m.Get(parts[0])
}

// Ensure returns the request's session, creating one and setting the cookie
// when the request carries none.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) *Session {
	if session := m.FromRequest(r); session != nil {
		return session
	}
	session := m.Create()
	m.SetCookie(w, session)
	return session
}

// signData creates an HMAC signature for data.
func (m *Manager) signData(data string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature.
func (m *Manager) verifySignature(data, signature string) bool {
	expected := m.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Data is the public session shape for JSON responses.
type Data struct {
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// ToJSON returns the session data for JSON responses.
func (s *Session) ToJSON() Data {
	return Data{
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}

// MarshalJSON implements json.Marshaler (excludes internal state).
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
