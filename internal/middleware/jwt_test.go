package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	token, err := ti.GenerateToken("rider-1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	identity, err := ti.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if identity != "rider-1" {
		t.Fatalf("identity = %q, want rider-1", identity)
	}

	other := NewTokenIssuer("other-secret", time.Hour)
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ti := NewTokenIssuer("test-secret", -time.Minute)
	token, err := ti.GenerateToken("rider-1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ti.ValidateToken(token); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ti := NewTokenIssuer("test-secret", time.Hour)

	r := gin.New()
	r.GET("/me", ti.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentIdentity(c))
	})

	token, _ := ti.GenerateToken("driver-9")
	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + token, http.StatusOK, "driver-9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.code {
				t.Fatalf("code = %d, want %d", w.Code, tc.code)
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q, want %q", w.Body.String(), tc.body)
			}
		})
	}
}

func TestEnableCORSPreflight(t *testing.T) {
	h := EnableCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/rides", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if w.Code == http.StatusTeapot {
		t.Fatal("preflight reached the wrapped handler")
	}
}
