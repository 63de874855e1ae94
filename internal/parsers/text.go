package parsers

import (
	"html"
	"regexp"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// TextParser renders plain text: blank lines separate paragraphs, single
// line breaks stay visible, everything is escaped.
type TextParser struct{}

// Name implements Parser.
func (TextParser) Name() string { return "text" }

// DisplayName implements Parser.
func (TextParser) DisplayName() string { return "Text" }

// Parse implements Parser.
func (TextParser) Parse(input string) (string, error) {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return "", nil
	}
	var b strings.Builder
	for _, paragraph := range paragraphBreak.Split(normalized, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		lines := strings.Split(paragraph, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>\n"))
		b.WriteString("</p>\n")
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
