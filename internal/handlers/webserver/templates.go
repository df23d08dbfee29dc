package webserver

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Pages renders the HTML pages of the web server.
type Pages struct {
	templates map[string]*pongo2.Template
	globals   pongo2.Context
}

// NewPages parses the embedded templates. globals are available to every
// page.
func NewPages(globals pongo2.Context) (*Pages, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("crosspost", pongo2.NewFSLoader(sub))

	p := &Pages{templates: make(map[string]*pongo2.Template), globals: globals}
	for _, name := range []string{"index", "login"} {
		tpl, err := set.FromFile(name + ".tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		p.templates[name] = tpl
	}
	return p, nil
}

// Render writes page name with status.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data pongo2.Context) {
	tpl, ok := p.templates[name]
	if !ok {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	ctx := pongo2.Context{}
	ctx.Update(p.globals)
	ctx.Update(data)

	body, err := tpl.ExecuteBytes(ctx)
	if err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
