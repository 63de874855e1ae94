// Package parsers converts author input (posts, comments) into safe HTML.
//
// Parsers are selected per use through the default_parser and
// comment_parser configuration keys. Plugins may register additional
// parsers during the setup stage.
package parsers

// Parser renders one input format into sanitized HTML.
type Parser interface {
	// Name is the stable identifier used in configuration.
	Name() string
	// DisplayName is shown in listings.
	DisplayName() string
	// Parse renders input to HTML that is safe to embed in a page.
	Parse(input string) (string, error)
}

// Builtin returns the parsers every instance ships with.
func Builtin() []Parser {
	return []Parser{
		TextParser{},
		HTMLParser{},
	}
}
