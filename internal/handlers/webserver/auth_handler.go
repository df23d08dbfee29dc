package webserver

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"crosspost/internal/config"
	"crosspost/internal/services"
)

// AuthHandler 封装了登录和登出的 HTTP 处理器方法。
type AuthHandler struct {
	auth   services.AuthService
	pages  *Pages
	cookie string
	secure bool
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(auth services.AuthService, pages *Pages, authCfg config.AuthConfig, baseURL string) *AuthHandler {
	name := authCfg.CookieName
	if name == "" {
		name = "crosspost_session"
	}
	return &AuthHandler{
		auth:   auth,
		pages:  pages,
		cookie: name,
		secure: strings.HasPrefix(baseURL, "https://"),
	}
}

// CookieName is the name of the session cookie.
func (h *AuthHandler) CookieName() string { return h.cookie }

// LoginPage 处理 GET /login。已登录的用户直接进入表单。
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie); err == nil {
		if _, err := h.auth.Authenticate(r.Context(), c.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	h.pages.Render(w, http.StatusOK, "login", nil)
}

// Login 处理 POST /login。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, http.StatusBadRequest, "login", pongo2.Context{"error": "The form could not be read."})
		return
	}
	token, expiresAt, err := h.auth.Login(r.Context(), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Printf("failed login from %s", r.RemoteAddr)
			h.pages.Render(w, http.StatusUnauthorized, "login", pongo2.Context{"error": "Incorrect password, try again."})
			return
		}
		log.Printf("login: %v", err)
		h.pages.Render(w, http.StatusInternalServerError, "login", pongo2.Context{"error": "Login failed."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout 处理 POST /logout，将当前 Token 加入黑名单。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie); err == nil {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			log.Printf("logout: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
