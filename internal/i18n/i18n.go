// Package i18n resolves and validates the blog language.
//
// Unlike per-visitor localization, a blog instance publishes in one
// language selected through the language configuration key; requests do
// not switch it. Accept-Language matching exists for the setup
// assistant, which suggests a default from the administrator's browser.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var supportedTags = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
	language.French,
	language.Italian,
	language.MustParse("pt-BR"),
}

var tagMatcher = language.NewMatcher(supportedTags)
var supportedTagSet = make(map[string]language.Tag, len(supportedTags))

func init() {
	for _, tag := range supportedTags {
		supportedTagSet[tag.String()] = tag
	}
}

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the default language tag.
func Default() language.Tag {
	return language.English
}

// Parse resolves a language value from configuration or plugin metadata.
// Both BCP 47 ("pt-BR") and locale-file ("pt_BR") spellings are
// accepted. Only supported tags resolve.
func Parse(value string) (language.Tag, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), "_", "-")
	if value == "" {
		return language.Tag{}, false
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return language.Tag{}, false
	}
	if tag, ok := supportedTagSet[parsed.String()]; ok {
		return tag, true
	}
	return language.Tag{}, false
}

// Normalize coerces unknown values to the default language.
func Normalize(value string) language.Tag {
	if tag, ok := Parse(value); ok {
		return tag
	}
	return Default()
}

// Validate reports whether value names a supported language, for checks
// before committing the language configuration key.
func Validate(value string) error {
	if _, ok := Parse(value); !ok {
		return fmt.Errorf("unsupported language %q", value)
	}
	return nil
}

// MatchAccept picks the best supported language for an Accept-Language
// header. An empty or unparsable header yields the default.
func MatchAccept(header string) language.Tag {
	header = strings.TrimSpace(header)
	if header == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return Default()
	}
	_, index, _ := tagMatcher.Match(tags...)
	return supportedTags[index]
}

// LocaleKey returns the locale-file spelling of a tag ("pt_BR"), the
// form plugin metadata files key their translations by.
func LocaleKey(tag language.Tag) string {
	return strings.ReplaceAll(tag.String(), "-", "_")
}

// NativeName returns a language's name for itself, for language pickers.
func NativeName(tag language.Tag) string {
	return display.Self.Name(tag)
}
