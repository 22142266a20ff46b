package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestMiddleware(t *testing.T) {
	mw := NewMiddleware(testSecret)

	var gotUserID int64
	var called bool
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUserID, _ = UserIDFrom(r.Context())
	}))

	validClaims := jwt.MapClaims{
		"sub": 42,
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUserID int64
	}{
		{"valid token", "Bearer " + signedToken(t, testSecret, validClaims), http.StatusOK, 42},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"not bearer", "Basic abc123", http.StatusUnauthorized, 0},
		{"wrong secret", "Bearer " + signedToken(t, "other-secret-0123456789", validClaims), http.StatusUnauthorized, 0},
		{"expired", "Bearer " + signedToken(t, testSecret, jwt.MapClaims{"sub": 42, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized, 0},
		{"no subject", "Bearer " + signedToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}), http.StatusUnauthorized, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			gotUserID = 0

			req := httptest.NewRequest(http.MethodGet, "/api/debts", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK {
				if !called {
					t.Fatal("handler not called")
				}
				if gotUserID != tc.wantUserID {
					t.Fatalf("user id = %d, want %d", gotUserID, tc.wantUserID)
				}
			} else if called {
				t.Fatal("handler called despite rejection")
			}
		})
	}
}

func TestUserIDFromMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFrom(req.Context()); ok {
		t.Fatal("expected no user id on bare context")
	}
}
