package middleware

import (
	"context"
	"log"
	"net/http"

	"crosspost/internal/auth"
)

// contextKey 是用于在 context.Context 中存储值的自定义类型，以避免键冲突。
type contextKey string

// ClaimsKey 是用于在上下文中存储会话声明的键。
const ClaimsKey contextKey = "claims"

// Authenticator validates a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// AuthMiddleware reads the session cookie, validates it and stores the
// claims in the request context. Page requests without a valid session are
// redirected to the login page; other requests get 401.
func AuthMiddleware(next http.Handler, authn Authenticator, cookieName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(cookieName); err == nil {
			token = c.Value
		}

		claims, err := authn.Authenticate(r.Context(), token)
		if err != nil {
			if token != "" {
				log.Printf("rejected session from %s: %v", r.RemoteAddr, err)
			}
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			http.Error(w, "not logged in", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext 从上下文中获取会话声明。
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
