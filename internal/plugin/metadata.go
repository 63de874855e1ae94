// Package plugin implements the engine's extension system: a closed set
// of compiled-in plugin implementations, paired with on-disk metadata
// descriptors that drive discovery, ordering, and enablement.
//
// A plugin implementation registers a named Factory at program init. The
// factory builds a fresh value per application instance, so two instances
// in one process never share plugin state. Descriptors without a
// registered factory fail to load and are skipped; a failure inside one
// plugin's setup is isolated to that plugin.
package plugin

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MetadataFileName is the descriptor file inside each plugin directory.
const MetadataFileName = "metadata.yml"

// namePattern restricts plugin names to lowercase identifiers.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// i18nKeyPattern matches locale-suffixed metadata keys like "display_name[de]".
var i18nKeyPattern = regexp.MustCompile(`^([a-z_]+)\[([a-zA-Z]{2,3}(?:[_-][a-zA-Z]{2,4})?)\]$`)

// Metadata describes a plugin for listings and the admin surface.
// Locale-suffixed descriptor keys provide translated variants.
type Metadata struct {
	DisplayName string
	Author      string
	Version     string
	Description string
	PluginURL   string

	translations map[string]map[string]string
}

// DisplayNameIn returns the display name for a locale, falling back to
// the untranslated value.
func (m Metadata) DisplayNameIn(locale string) string {
	return m.translated("display_name", locale, m.DisplayName)
}

// DescriptionIn returns the description for a locale, falling back to
// the untranslated value.
func (m Metadata) DescriptionIn(locale string) string {
	return m.translated("description", locale, m.Description)
}

func (m Metadata) translated(field, locale, fallback string) string {
	if fields, ok := m.translations[normalizeLocale(locale)]; ok {
		if value, ok := fields[field]; ok && value != "" {
			return value
		}
	}
	return fallback
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
}

// ValidName reports whether name is acceptable as a plugin name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// parseMetadata decodes a descriptor file. Unknown keys are ignored so
// descriptors can carry fields this engine version does not know yet.
func parseMetadata(data []byte) (Metadata, error) {
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("parse %s: %w", MetadataFileName, err)
	}
	meta := Metadata{translations: make(map[string]map[string]string)}
	for key, value := range raw {
		text := stringify(value)
		if match := i18nKeyPattern.FindStringSubmatch(key); match != nil {
			field, locale := match[1], normalizeLocale(match[2])
			if meta.translations[locale] == nil {
				meta.translations[locale] = make(map[string]string)
			}
			meta.translations[locale][field] = text
			continue
		}
		switch key {
		case "display_name":
			meta.DisplayName = text
		case "author":
			meta.Author = text
		case "version":
			meta.Version = text
		case "description":
			meta.Description = text
		case "plugin_url":
			meta.PluginURL = text
		}
	}
	return meta, nil
}

// stringify renders scalar YAML values the way descriptor authors expect
// (unquoted versions like 1.0 arrive as floats).
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// readMetadata loads and parses the descriptor inside dir on fsys.
func readMetadata(fsys fs.FS, dir string) (Metadata, error) {
	data, err := fs.ReadFile(fsys, joinFSPath(dir, MetadataFileName))
	if err != nil {
		return Metadata{}, err
	}
	return parseMetadata(data)
}

func joinFSPath(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}
