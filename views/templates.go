package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"itemboard/auth"
	"itemboard/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"login.html",
	"profile.html",
	"items.html",
	"item_detail.html",
}

// Templates holds parsed page templates, each combined with the layout.
type Templates struct {
	pages map[string]*template.Template
}

// PageData is the base data passed to every page.
type PageData struct {
	Title string
	User  *auth.Claims
	Error string
	// ListPath is the item list link in the nav. Empty hides the link.
	ListPath string
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"millis": func(ms int64) string {
			return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	ts := &Templates{pages: make(map[string]*template.Template)}
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcMap()).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		ts.pages[page] = tmpl
	}
	return ts, nil
}

// Render executes page through the layout.
func (ts *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := ts.pages[page]
	if !ok {
		return fmt.Errorf("template %s not found", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// ListPage is the data for items.html.
type ListPage struct {
	PageData
	Items []models.Item
}

// DetailPage is the data for item_detail.html.
type DetailPage struct {
	PageData
	Item models.Item
}
