// Package web holds the server-rendered pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var files embed.FS

const layoutFile = "templates/layout.html"

// Templates holds one parsed set per page, each sharing the layout.
type Templates struct {
	pages map[string]*template.Template
}

// Funcs are available to every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": Money,
	}
}

// Load parses every embedded page together with the layout
func Load() (*Templates, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	t := &Templates{pages: make(map[string]*template.Template, len(names))}
	for _, file := range names {
		if file == layoutFile {
			continue
		}
		name := path.Base(file)
		tmpl, err := template.New(name).Funcs(Funcs()).ParseFS(files, layoutFile, file)
		if err != nil {
			slog.Error("Failed to parse template", "file", file, "error", err)
			return nil, err
		}
		t.pages[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return t, nil
}

// Render executes the named page, e.g. "cart.html".
func (t *Templates) Render(w io.Writer, name string, data any) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// Money formats an amount with thousands separators. Whole amounts drop the
// fraction: 130000 renders as "130,000".
func Money(d decimal.Decimal) string {
	places := int32(2)
	if d.Equal(d.Truncate(0)) {
		places = 0
	}
	s := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
