package webserver

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"crosspost/internal/middleware"
)

// UploadsPath is the URL prefix stored images are served under.
const UploadsPath = "/uploads/"

// Routes are the handlers the router dispatches to.
type Routes struct {
	Form   *FormHandler
	Auth   *AuthHandler
	Health *HealthHandler

	Authenticator middleware.Authenticator
	StaticDir     string // wasm module and scripts
	UploadsDir    string // stored images
}

// NewRouter wires the web server routes. The form and its submission need a
// session; login, static files and stored images do not.
func NewRouter(rt Routes) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFound)

	r.HandleFunc("/login", rt.Auth.LoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", rt.Auth.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", rt.Auth.Logout).Methods(http.MethodPost)
	if rt.Health != nil {
		r.HandleFunc("/healthz", rt.Health.Health).Methods(http.MethodGet)
	}

	if rt.StaticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fileServer(rt.StaticDir)))
	}
	if rt.UploadsDir != "" {
		prefix := strings.TrimSuffix(UploadsPath, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, fileServer(rt.UploadsDir)))
	}

	app := r.NewRoute().Subrouter()
	app.Use(func(next http.Handler) http.Handler {
		return middleware.AuthMiddleware(next, rt.Authenticator, rt.Auth.CookieName())
	})
	app.HandleFunc("/", rt.Form.Index).Methods(http.MethodGet)
	app.HandleFunc("/submit", rt.Form.Submit).Methods(http.MethodPost)

	return r
}

// fileServer serves the files under dir but never lists a directory.
func fileServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
