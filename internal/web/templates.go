package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/justestif/go-setlist-to-playlist/internal/setlistfm"
	"github.com/justestif/go-setlist-to-playlist/internal/spotify"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	// ParseFS names the template after the file
	return tmpl.ExecuteTemplate(w, partial+".html", data)
}

// load parses pages/*.html, each together with every layout and partial,
// and partials/*.html on their own for HTMX fragments.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page templates found")
	}

	common := make([]string, 0, len(layouts)+len(partials))
	common = append(common, layouts...)
	common = append(common, partials...)

	for _, page := range pages {
		name := templateName(page)
		files := append([]string{page}, common...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	for _, partial := range partials {
		name := templateName(partial)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// templateName strips the directory and .html extension.
func templateName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".html")
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// eventDate formats a setlist's event date as "Jan 2, 2006"
		"eventDate": func(s *setlistfm.Setlist) string {
			date, err := s.Date()
			if err != nil {
				return s.EventDate
			}
			return date.Format("Jan 2, 2006")
		},

		// add adds two integers
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title         string
	Authenticated bool
	Flash         *FlashMessage
	CurrentPath   string
}

// FlashMessage represents a temporary notification message.
type FlashMessage struct {
	Type    string // "error" or "info"
	Message string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	PendingURL string // URL submitted before logging in
}

// PlaylistPageData contains data for the generated playlist page.
type PlaylistPageData struct {
	PageData
	Playlist    *spotify.Playlist
	Setlist     *setlistfm.Setlist
	SetlistJSON string // round-tripped to the populate step
	Songs       []string
}

// TracksPartialData contains data for the track matching fragment.
type TracksPartialData struct {
	Result *spotify.MatchResult
	Error  string
}
