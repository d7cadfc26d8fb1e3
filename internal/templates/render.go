// Package templates renders the HTML fragments patched into the viewer page
// over SSE. Fragments are embedded; a directory may override them for
// development.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"os"
	"sync"

	"github.com/joeblew999/plat-geoview/internal/style"
)

//go:embed fragments/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs for nested templates.
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"swatch": swatch,
}

// swatch renders a resolved visual as an inline-styled span.
func swatch(v style.Visual) template.HTML {
	var css string
	switch v.Kind {
	case style.Polygon:
		css = "display:inline-block;width:10px;height:10px"
		if v.Fill != nil {
			css += ";background:" + v.Fill.Hex()
		}
		if v.Stroke != nil {
			css += fmt.Sprintf(";border:%gpx solid %s", v.Stroke.Width, v.Stroke.Color.Hex())
		}
	case style.Line:
		if v.Stroke == nil {
			return ""
		}
		css = fmt.Sprintf("display:inline-block;vertical-align:middle;width:10px;height:%gpx;background:%s", v.Stroke.Width, v.Stroke.Color.Hex())
	case style.Point:
		d := math.Max(2, 2*v.Radius)
		css = fmt.Sprintf("display:inline-block;vertical-align:middle;border-radius:50%%;width:%gpx;height:%gpx;border:1px solid black", d, d)
		if v.Fill != nil {
			css += ";background:" + v.Fill.Hex()
		}
	default:
		return ""
	}
	// css is assembled from numbers and hex colours only.
	return template.HTML(`<span class="swatch" style="` + css + `"></span>`)
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer from the embedded fragments, or from dir when it
// is non-empty.
func New(dir string) (*Renderer, error) {
	tmpl, err := parse(dir)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Must is New for the embedded fragments, which are known to parse.
func Must() *Renderer {
	r, err := New("")
	if err != nil {
		panic(err)
	}
	return r
}

func parse(dir string) (*template.Template, error) {
	var fsys fs.FS = embedded
	pattern := "fragments/*.html"
	if dir != "" {
		fsys = os.DirFS(dir)
		pattern = "*.html"
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.ExecuteTemplate(buf, name, data)
}

// Reload re-reads the templates (dev hot-reload).
func (r *Renderer) Reload(dir string) error {
	tmpl, err := parse(dir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}
