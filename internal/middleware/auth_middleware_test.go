package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"crosspost/internal/auth"
)

type stubAuth struct{ valid string }

func (s stubAuth) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" || token != s.valid {
		return nil, errors.New("bad token")
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "owner"}}, nil
}

func TestAuthMiddleware(t *testing.T) {
	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
			return
		}
		gotSubject = claims.Subject
		w.WriteHeader(http.StatusNoContent)
	})
	h := AuthMiddleware(next, stubAuth{valid: "good"}, "session")

	tests := []struct {
		name     string
		method   string
		cookie   string
		wantCode int
	}{
		{"valid cookie", http.MethodGet, "good", http.StatusNoContent},
		{"no cookie page", http.MethodGet, "", http.StatusSeeOther},
		{"bad cookie page", http.MethodGet, "bad", http.StatusSeeOther},
		{"no cookie post", http.MethodPost, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "session", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusSeeOther && rec.Header().Get("Location") != LoginPath {
				t.Errorf("Location = %q", rec.Header().Get("Location"))
			}
		})
	}
	if gotSubject != "owner" {
		t.Errorf("subject = %q", gotSubject)
	}
}
