package badge

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Tricked-dev/musicembed-spotify/badge/badgeui"
)

const StyleDefault = "default"

// Renderer holds the parsed SVG templates, one per badge style.
type Renderer struct {
	styles map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"barWidth": func(total, percent int) int {
			return total * percent / 100
		},
	}

	styles := map[string]*template.Template{}
	entries, err := fs.ReadDir(badgeui.TemplatesFS, "styles")
	if err != nil {
		return nil, fmt.Errorf("read styles dir: %w", err)
	}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		tmpl, err := template.
			New(entry.Name()).
			Funcs(funcs).
			ParseFS(badgeui.TemplatesFS, "styles/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("parse style %q: %w", name, err)
		}
		styles[name] = tmpl
	}
	if _, ok := styles[StyleDefault]; !ok {
		return nil, fmt.Errorf("no %q style template", StyleDefault)
	}
	return &Renderer{styles: styles}, nil
}

// Styles lists the available badge styles, sorted.
func (r *Renderer) Styles() []string {
	var names []string
	for name := range r.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render writes the SVG for the given style, falling back to the default
// style when the requested one doesn't exist.
func (r *Renderer) Render(w io.Writer, style string, model Model) error {
	tmpl, ok := r.styles[style]
	if !ok {
		tmpl = r.styles[StyleDefault]
	}
	if err := tmpl.Execute(w, model); err != nil {
		return fmt.Errorf("execute style template: %w", err)
	}
	return nil
}
