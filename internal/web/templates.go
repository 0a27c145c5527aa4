package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/desertthunder/tcgx/internal/models"
	"github.com/desertthunder/tcgx/internal/shared"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pages = []string{
	"home.html",
	"investment.html",
	"investment_result.html",
	"search.html",
	"search_results.html",
	"list.html",
	"error.html",
}

// view is the data every page template receives.
type view struct {
	Title   string
	User    *models.Identity
	Flashes []Flash
	Data    any
}

// Templates holds one parsed template set per page, each layered on the shared base layout.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"price": shared.FormatPrice,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02")
	},
}

// ParseTemplates parses the embedded page templates.
func ParseTemplates() (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFiles, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		t.pages[page] = tmpl
	}
	return t, nil
}

// Render executes page into w with status. Output is buffered so a template error never sends a partial page.
func (t *Templates) Render(w http.ResponseWriter, status int, page string, v view) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown template %s", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", v); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
