package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// sessionCookie names the cookie that carries the dashboard session token.
const sessionCookie = "xcaboard_session"

// SessionStore tracks issued dashboard sessions in memory. Sessions do not
// survive a restart, which forces a fresh login after a deploy.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	ttl    time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
	}
}

// Create issues a new session token.
func (s *SessionStore) Create() string {
	b := make([]byte, 16)
	rand.Read(b)
	token := hex.EncodeToString(b)

	s.mu.Lock()
	s.tokens[token] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return token
}

// Valid reports whether the token belongs to a live session. Expired
// sessions are pruned as they are seen.
func (s *SessionStore) Valid(token string) bool {
	s.mu.RLock()
	expiry, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return false
}

func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

// AuthHandler gates the dashboard behind a single shared password. With no
// password configured every request passes through.
type AuthHandler struct {
	hash     []byte
	sessions *SessionStore
}

// NewAuthHandler hashes the configured password once at startup. An empty
// password disables authentication.
func NewAuthHandler(password string, sessions *SessionStore) (*AuthHandler, error) {
	h := &AuthHandler{sessions: sessions}
	if password == "" {
		return h, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing dashboard password: %w", err)
	}
	h.hash = hash
	return h, nil
}

// Enabled reports whether a password is configured.
func (h *AuthHandler) Enabled() bool { return h.hash != nil }

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/auth", h.Check)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)
}

// Check tells the frontend whether it needs to show the login overlay.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"required":      h.Enabled(),
		"authenticated": h.authenticated(r),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.hash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.sessions.Revoke(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

// Require rejects requests without a live session. It is a no-op when
// authentication is disabled.
func (h *AuthHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

func (h *AuthHandler) authenticated(r *http.Request) bool {
	if !h.Enabled() {
		return true
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	return h.sessions.Valid(c.Value)
}
