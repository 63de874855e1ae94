package builtin

import (
	"embed"

	"github.com/zineproject/zine/internal/plugin"
	"github.com/zineproject/zine/internal/theme"
)

//go:embed darktheme/*.html
var darkThemeFS embed.FS

func init() {
	plugin.Register("dark_theme", func() plugin.Plugin {
		return darkTheme{}
	})
}

// darkTheme registers the bundled low-light theme. Activating it is a
// configuration change: set theme = dark_theme.
type darkTheme struct{}

func (darkTheme) Setup(host plugin.Host) error {
	t, err := theme.New("dark_theme", theme.Metadata{
		DisplayName: "Dark Theme",
		Author:      "Zine Team",
		Version:     "1.0",
		Description: "A low-light variant of the default theme.",
	}, darkThemeFS, "darktheme/*.html")
	if err != nil {
		return err
	}
	return host.AddTheme(t)
}
