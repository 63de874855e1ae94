// Package theme holds the template sets blogs render their pages with.
//
// Every instance ships with the default theme. Plugins may register
// additional themes during the setup stage; the theme configuration key
// selects the active one, falling back to the default when the
// configured theme is unknown.
package theme

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
)

// DefaultName is the theme every instance falls back to.
const DefaultName = "default"

// Metadata describes a theme in listings.
type Metadata struct {
	DisplayName string
	Author      string
	Version     string
	Description string
}

// Theme is a named set of page templates.
type Theme struct {
	name      string
	meta      Metadata
	templates *template.Template
}

// New parses the templates matched by patterns inside fsys into a theme.
func New(name string, meta Metadata, fsys fs.FS, patterns ...string) (*Theme, error) {
	if name == "" {
		return nil, fmt.Errorf("theme: name required")
	}
	templates, err := template.ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", name, err)
	}
	return &Theme{name: name, meta: meta, templates: templates}, nil
}

// Name is the identifier used in configuration.
func (t *Theme) Name() string { return t.name }

// Meta returns the theme's listing metadata.
func (t *Theme) Meta() Metadata { return t.meta }

// Render executes the named template with data.
func (t *Theme) Render(w io.Writer, name string, data any) error {
	if err := t.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("theme %s: render %s: %w", t.name, name, err)
	}
	return nil
}

//go:embed templates/*.html
var defaultFS embed.FS

// Default returns the built-in theme.
func Default() *Theme {
	return &Theme{
		name: DefaultName,
		meta: Metadata{
			DisplayName: "Default",
			Author:      "Zine Team",
			Description: "The theme every instance ships with.",
		},
		templates: template.Must(template.ParseFS(defaultFS, "templates/*.html")),
	}
}
