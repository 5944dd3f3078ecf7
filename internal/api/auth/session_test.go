package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/store"
	"github.com/tupichanga/courtbook/internal/testutil"
)

func newSessionFixture(t *testing.T) int64 {
	t.Helper()
	st := store.New(testutil.NewTestDB(t))
	queries = st

	id, err := st.CreateUser(context.Background(), domain.User{
		Email: "session@example.com", Name: "Session User",
		PasswordHash: "x", Role: domain.RoleClient,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	userID := newSessionFixture(t)

	rec := httptest.NewRecorder()
	if err := CreateSession(rec, userID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.AddCookie(cookie)

	principal, err := UserFromRequest(req)
	if err != nil {
		t.Fatalf("UserFromRequest: %v", err)
	}
	if principal == nil || principal.ID != userID {
		t.Fatalf("principal = %+v, want user %d", principal, userID)
	}
	if principal.Role != domain.RoleClient {
		t.Errorf("role = %s, want CLIENT", principal.Role)
	}
}

func TestSession_InvalidToken(t *testing.T) {
	newSessionFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-token"})

	principal, err := UserFromRequest(req)
	if err != nil {
		t.Fatalf("UserFromRequest: %v", err)
	}
	if principal != nil {
		t.Fatalf("expected nil principal, got %+v", principal)
	}
}

func TestSession_NoCookie(t *testing.T) {
	newSessionFixture(t)

	principal, err := UserFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("UserFromRequest: %v", err)
	}
	if principal != nil {
		t.Fatalf("expected nil principal, got %+v", principal)
	}
}

func TestSession_Expired(t *testing.T) {
	userID := newSessionFixture(t)

	rec := httptest.NewRecorder()
	if err := CreateSession(rec, userID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	cookie := sessionCookie(t, rec)

	sessionMu.Lock()
	record := sessionStore[cookie.Value]
	record.ExpiresAt = time.Now().Add(-time.Minute)
	sessionStore[cookie.Value] = record
	sessionMu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	principal, err := UserFromRequest(req)
	if err != nil {
		t.Fatalf("UserFromRequest: %v", err)
	}
	if principal != nil {
		t.Fatalf("expired session resolved to %+v", principal)
	}
}

func TestSession_SecondLoginRevokesFirst(t *testing.T) {
	userID := newSessionFixture(t)

	first := httptest.NewRecorder()
	if err := CreateSession(first, userID); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}
	firstCookie := sessionCookie(t, first)

	second := httptest.NewRecorder()
	if err := CreateSession(second, userID); err != nil {
		t.Fatalf("second CreateSession: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(firstCookie)

	principal, err := UserFromRequest(req)
	if err != nil {
		t.Fatalf("UserFromRequest: %v", err)
	}
	if principal != nil {
		t.Fatalf("revoked session still resolved to %+v", principal)
	}
}

func TestClearSession(t *testing.T) {
	userID := newSessionFixture(t)

	rec := httptest.NewRecorder()
	if err := CreateSession(rec, userID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	cookie := sessionCookie(t, rec)

	clearReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	clearReq.AddCookie(cookie)
	clearRec := httptest.NewRecorder()
	ClearSession(clearRec, clearReq)

	cleared := sessionCookie(t, clearRec)
	if cleared.MaxAge != -1 {
		t.Errorf("cleared cookie MaxAge = %d, want -1", cleared.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	principal, err := UserFromRequest(req)
	if err != nil {
		t.Fatalf("UserFromRequest: %v", err)
	}
	if principal != nil {
		t.Fatalf("cleared session still resolved to %+v", principal)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("", "anything") {
		t.Error("empty hash accepted")
	}
}
