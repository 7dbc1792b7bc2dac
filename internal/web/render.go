package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"project-tracker/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.html"

// Renderer renders one page template inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(d *model.Date) string {
		if d == nil {
			return "-"
		}
		return d.Format("Jan 02, 2006")
	},
	"datetime": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			return v.Format("Jan 02, 2006 15:04")
		case *time.Time:
			if v != nil {
				return v.Format("Jan 02, 2006 15:04")
			}
		}
		return "Never"
	},
	"pct": func(f float64) string {
		return fmt.Sprintf("%.1f", f)
	},
	"money": func(d *model.Decimal) string {
		if d == nil {
			return "-"
		}
		return d.String()
	},
	"lower": strings.ToLower,
	"add":   func(a, b int) int { return a + b },
}

// NewRenderer parses every page under templates/ against the layout.
func NewRenderer() (*Renderer, error) {
	layout, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		page, err := clone.ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = page
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, "base", data)
}
