package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/apexpos/admin/internal/shared"
	"github.com/apexpos/admin/web"
)

// Engine renders HTML templates. Every page is parsed into its own set on
// top of the shared layouts and partials, so pages can all define "content".
type Engine struct {
	pages map[string]*template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	SidebarOpen bool
	Nav         []NavLink
	Data        any
}

// Options configures template helpers.
type Options struct {
	// ImageURL resolves stored image paths; nil leaves paths untouched.
	ImageURL func(string) string
	Location *time.Location
}

// NewEngine parses the embedded templates.
func NewEngine(opts Options) (*Engine, error) {
	return newEngine(web.Templates, opts)
}

func newEngine(fsys fs.FS, opts Options) (*Engine, error) {
	base, err := template.New("root").Funcs(Funcs(opts)).ParseFS(fsys, "templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		set, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := set.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", file, err)
		}
		pages["pages/"+path.Base(file)] = set
	}
	return &Engine{pages: pages}, nil
}

// Has reports whether a page template exists.
func (e *Engine) Has(name string) bool {
	_, ok := e.pages[name]
	return ok
}

// Render executes the layout of the named page with TemplateData. Output is
// buffered so a failing template never leaves a half-written page.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	set, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown template %q", name)
	}
	if data.Nav == nil {
		data.Nav = Navigation(data.CurrentPath)
	}
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, "base", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
