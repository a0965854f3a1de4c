package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// TemplateRenderer renders named templates into responses.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{})
	RenderPartial(w http.ResponseWriter, name string, data interface{})
}

// Renderer manages template parsing and rendering with isolated template sets.
//
// Templates are organized as:
//   - layouts/public.html - the page layout, defining "public"
//   - partials/*.html - fragments, parsed into every page and also
//     available standalone for htmx responses
//   - pages/*.html - pages defining "title" and "content"
//
// Pages are stored as "public/<name>", partials as "partial/<name>".
type Renderer struct {
	fsys   fs.FS
	logger *slog.Logger
	isDev  bool

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	FS           fs.FS  // Embedded templates
	TemplatesDir string // Read from disk instead when IsDev is set and it exists
	Logger       *slog.Logger
	IsDev        bool // Reload templates on every render
}

// NewRenderer parses all templates.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	fsys := cfg.FS
	if cfg.IsDev && cfg.TemplatesDir != "" {
		if info, err := os.Stat(cfg.TemplatesDir); err == nil && info.IsDir() {
			fsys = os.DirFS(cfg.TemplatesDir)
		}
	}
	if fsys == nil {
		return nil, fmt.Errorf("renderer: no template source configured")
	}

	r := &Renderer{
		fsys:   fsys,
		logger: cfg.Logger,
		isDev:  cfg.IsDev,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every template.
func (r *Renderer) Reload() error {
	templates, err := r.load()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = templates
	r.mu.Unlock()
	return nil
}

func (r *Renderer) load() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	partialFiles, err := fs.Glob(r.fsys, "partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}
	for _, partial := range partialFiles {
		tmpl, err := template.New("").Funcs(TemplateFuncs()).ParseFS(r.fsys, partial)
		if err != nil {
			return nil, fmt.Errorf("parse partial %s: %w", partial, err)
		}
		templates["partial/"+baseName(partial)] = tmpl
	}

	base, err := template.New("public").Funcs(TemplateFuncs()).ParseFS(r.fsys, "layouts/public.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if len(partialFiles) > 0 {
		if base, err = base.ParseFS(r.fsys, partialFiles...); err != nil {
			return nil, fmt.Errorf("parse partials into layout: %w", err)
		}
	}

	pages, err := fs.Glob(r.fsys, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob pages: %w", err)
	}
	for _, page := range pages {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", page, err)
		}
		if tmpl, err = tmpl.ParseFS(r.fsys, page); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", page, err)
		}
		templates["public/"+baseName(page)] = tmpl
	}

	if r.logger != nil {
		r.logger.Debug("templates loaded", "count", len(templates))
	}
	return templates, nil
}

func baseName(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev {
		if err := r.Reload(); err != nil {
			return nil, fmt.Errorf("template reload failed: %w", err)
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return tmpl, nil
}

// execName is the template to execute inside a set.
func execName(name string) string {
	if partial, ok := strings.CutPrefix(name, "partial/"); ok {
		return partial
	}
	return "public"
}

// Render renders a template to an io.Writer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, execName(name), data)
}

// RenderHTTP renders a page with status 200.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	r.RenderHTTPStatus(w, http.StatusOK, name, data)
}

// RenderHTTPStatus renders into a buffer first so a failing template
// never leaves a half-written page.
func (r *Renderer) RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", "name", name, "error", err)
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderPartial renders a partial template (for htmx responses).
// The partial file must {{define}} a template named like the file.
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) {
	r.RenderHTTPStatus(w, http.StatusOK, "partial/"+name, data)
}

// ListTemplates returns the loaded template names, sorted.
func (r *Renderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
