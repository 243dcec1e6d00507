package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func loginRequest(t *testing.T, h *AuthHandler, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"password": "` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestAuth_DisabledPassesEverything(t *testing.T) {
	h, err := NewAuthHandler("", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}
	if h.Enabled() {
		t.Fatal("Enabled = true with no password")
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.Require(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthCheck_ReportsRequirement(t *testing.T) {
	h, err := NewAuthHandler("hunter2", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body["required"] {
		t.Error("required = false, want true")
	}
	if body["authenticated"] {
		t.Error("authenticated = true without a session")
	}
}

func TestLogin_Success(t *testing.T) {
	h, err := NewAuthHandler("hunter2", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}

	rec := loginRequest(t, h, "hunter2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	cookie := sessionCookieFrom(t, rec)
	if !cookie.HttpOnly {
		t.Error("cookie is not HttpOnly")
	}

	// The issued session passes the gate.
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.AddCookie(cookie)
	gateRec := httptest.NewRecorder()
	h.Require(okHandler()).ServeHTTP(gateRec, req)

	if gateRec.Code != http.StatusOK {
		t.Errorf("gated status = %d, want %d", gateRec.Code, http.StatusOK)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, err := NewAuthHandler("hunter2", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}

	rec := loginRequest(t, h, "guess")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogin_InvalidPayload(t *testing.T) {
	h, err := NewAuthHandler("hunter2", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequire_RejectsMissingSession(t *testing.T) {
	h, err := NewAuthHandler("hunter2", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.Require(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	h, err := NewAuthHandler("hunter2", NewSessionStore(time.Hour))
	if err != nil {
		t.Fatalf("NewAuthHandler: %v", err)
	}

	cookie := sessionCookieFrom(t, loginRequest(t, h, "hunter2"))

	logoutReq := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logoutReq.AddCookie(cookie)
	logoutRec := httptest.NewRecorder()
	h.Logout(logoutRec, logoutReq)

	if logoutRec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want %d", logoutRec.Code, http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.Require(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d after logout, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	s := NewSessionStore(-time.Minute)
	token := s.Create()

	if s.Valid(token) {
		t.Error("expired session reported valid")
	}
	// The expired entry is pruned, not just rejected.
	if s.Valid(token) {
		t.Error("pruned session reported valid")
	}
}
